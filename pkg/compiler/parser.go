package compiler

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/code"
)

// Compiler is the single-pass parser/code-generator. There is no syntax
// tree: as each grammar production is recognized, its instructions are
// appended to text and its data to data. Forward branches are emitted with
// a placeholder operand whose index is captured and overwritten in place
// once the target is known; instructions never move after emission.
//
// All mutable compilation state (current token, expression type, local
// offset bookkeeping) lives here and is threaded through the recursive
// descent explicitly.
type Compiler struct {
	lex  *Lexer
	syms *SymbolTable

	text []int64
	data []byte

	tok Token   // current token
	sym *Symbol // symbol behind the current identifier token
	ty  Type    // type of the most recently parsed (sub)expression
	loc int64   // frame-offset bias for the function being parsed

	listing io.Writer // when non-nil, source/assembly echo target
	listed  int64     // first instruction index not yet echoed
}

// NewCompiler returns a Compiler over src with a freshly seeded symbol
// table. When listing is non-nil, each source line is echoed to it followed
// by the instructions emitted for that line, interleaved with compilation.
func NewCompiler(src []byte, listing io.Writer) *Compiler {
	c := &Compiler{
		lex:     NewLexer(src),
		syms:    NewSymbolTable(),
		listing: listing,
	}
	if listing != nil {
		c.lex.LineHook = func(line int, text []byte) {
			fmt.Fprintf(listing, "%d: %s", line, text)
			c.listed = code.Disasm(listing, c.text, c.listed, c.pos())
		}
	}
	return c
}

// errf builds a fatal compile error tagged with the current line number.
func (c *Compiler) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", c.tok.Line, fmt.Sprintf(format, args...))
}

// next advances to the next token, resolving identifiers through the
// symbol table so that keywords come back as their own token kinds.
func (c *Compiler) next() error {
	t, err := c.lex.Next()
	if err != nil {
		return err
	}
	if t.Kind == Id {
		sym := c.syms.LookupOrInsert(t.Name, t.Hash)
		if sym.Kind != Id {
			t.Kind = sym.Kind
		}
		c.sym = sym
	}
	c.tok = t
	return nil
}

// skip consumes the current token if it matches want and fails with a
// line-tagged message otherwise.
func (c *Compiler) skip(want TokenKind, msg string) error {
	if c.tok.Kind != want {
		return c.errf("%s", msg)
	}
	return c.next()
}

func (c *Compiler) pos() int64 {
	return int64(len(c.text))
}

func (c *Compiler) emit(op code.Opcode) {
	c.text = append(c.text, int64(op))
}

func (c *Compiler) emitOp(op code.Opcode, operand int64) {
	c.text = append(c.text, int64(op), operand)
}

// hole emits a branch instruction with a placeholder operand and returns
// the operand's index for later backpatching.
func (c *Compiler) hole(op code.Opcode) int64 {
	c.emitOp(op, 0)
	return c.pos() - 1
}

func (c *Compiler) patch(at, target int64) {
	c.text[at] = target
}

// lastLoad reports whether the most recently emitted instruction is a
// dereferencing load, i.e. the expression just parsed has an address.
func (c *Compiler) lastLoad() (code.Opcode, bool) {
	if len(c.text) == 0 {
		return 0, false
	}
	op := code.Opcode(c.text[len(c.text)-1])
	return op, op == code.LI || op == code.LC
}

// allocData reserves n zeroed bytes in the data segment and returns the
// starting address.
func (c *Compiler) allocData(n int64) int64 {
	addr := int64(len(c.data))
	c.data = append(c.data, make([]byte, n)...)
	return addr
}

// alignData rounds the data pointer up past at least one zero byte, which
// NUL-terminates whatever string was just interned.
func (c *Compiler) alignData() {
	pad := code.WordSize - int64(len(c.data))%code.WordSize
	c.data = append(c.data, make([]byte, pad)...)
}

// internString appends the decoded bytes of the current string token to the
// data segment and returns their starting address. Adjacent string tokens
// are concatenated; the caller aligns afterwards.
func (c *Compiler) internString() int64 {
	addr := int64(len(c.data))
	c.data = append(c.data, c.tok.Str...)
	return addr
}

// scale is the pointer-arithmetic factor for the pointee of ty: word size
// for pointers to word-sized things, 1 otherwise (char pointees and plain
// integers).
func scale(ty Type) int64 {
	if ty > TypePtr {
		return code.WordSize
	}
	return 1
}

// parseTypeSpec parses an optional base type (defaulting to int) followed
// by any number of '*', and returns the resulting type.
func (c *Compiler) parseTypeSpec() (Type, error) {
	ty := TypeInt
	switch c.tok.Kind {
	case Int:
		if err := c.next(); err != nil {
			return 0, err
		}
	case Char:
		ty = TypeChar
		if err := c.next(); err != nil {
			return 0, err
		}
	}
	for c.tok.Kind == Mul {
		if err := c.next(); err != nil {
			return 0, err
		}
		ty += TypePtr
	}
	return ty, nil
}

// expr parses one expression with precedence climbing and emits its code.
// lev is the minimum operator kind that may be folded at this level; the
// TokenKind ordering doubles as the precedence table. On return c.ty holds
// the expression's type and the emitted code leaves the value in the
// accumulator.
func (c *Compiler) expr(lev TokenKind) error {
	// Unary and primary expressions.
	switch {
	case c.tok.Kind == EOF:
		return c.errf("unexpected eof in expression")

	case c.tok.Kind == Num:
		c.emitOp(code.IMM, c.tok.Val)
		if err := c.next(); err != nil {
			return err
		}
		c.ty = TypeInt

	case c.tok.Kind == Str:
		addr := c.internString()
		if err := c.next(); err != nil {
			return err
		}
		for c.tok.Kind == Str { // adjacent literals concatenate
			c.internString()
			if err := c.next(); err != nil {
				return err
			}
		}
		c.alignData()
		c.emitOp(code.IMM, addr)
		c.ty = TypeChar + TypePtr

	case c.tok.Kind == Sizeof:
		if err := c.next(); err != nil {
			return err
		}
		if err := c.skip(TokenKind('('), "open paren expected in sizeof"); err != nil {
			return err
		}
		ty, err := c.parseTypeSpec()
		if err != nil {
			return err
		}
		if err := c.skip(TokenKind(')'), "close paren expected in sizeof"); err != nil {
			return err
		}
		c.emitOp(code.IMM, sizeof(ty))
		c.ty = TypeInt

	case c.tok.Kind == Id:
		d := c.sym
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind == TokenKind('(') {
			// Function or system call: arguments are evaluated and
			// pushed in source order, cleaned up by ADJ after return.
			if err := c.next(); err != nil {
				return err
			}
			nargs := int64(0)
			for c.tok.Kind != TokenKind(')') {
				if err := c.expr(Assign); err != nil {
					return err
				}
				c.emit(code.PSH)
				nargs++
				if c.tok.Kind == TokenKind(',') {
					if err := c.next(); err != nil {
						return err
					}
				}
			}
			if err := c.next(); err != nil {
				return err
			}
			switch d.Class {
			case Sys:
				c.emit(code.Opcode(d.Val))
			case Fun:
				c.emitOp(code.JSR, d.Val)
			default:
				return c.errf("bad function call")
			}
			if nargs > 0 {
				c.emitOp(code.ADJ, nargs)
			}
			c.ty = d.Type
		} else if d.Class == Num {
			c.emitOp(code.IMM, d.Val)
			c.ty = TypeInt
		} else {
			switch d.Class {
			case Loc:
				c.emitOp(code.LEA, c.loc-d.Val)
			case Glo:
				c.emitOp(code.IMM, d.Val)
			default:
				return c.errf("undefined variable %q", d.Name)
			}
			c.ty = d.Type
			if c.ty == TypeChar {
				c.emit(code.LC)
			} else {
				c.emit(code.LI)
			}
		}

	case c.tok.Kind == TokenKind('('):
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind == Int || c.tok.Kind == Char {
			ty, err := c.parseTypeSpec()
			if err != nil {
				return err
			}
			if err := c.skip(TokenKind(')'), "bad cast"); err != nil {
				return err
			}
			if err := c.expr(Inc); err != nil {
				return err
			}
			c.ty = ty
		} else {
			if err := c.expr(Assign); err != nil {
				return err
			}
			if err := c.skip(TokenKind(')'), "close paren expected"); err != nil {
				return err
			}
		}

	case c.tok.Kind == Mul: // dereference
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		if c.ty <= TypeInt {
			return c.errf("bad dereference")
		}
		c.ty -= TypePtr
		if c.ty == TypeChar {
			c.emit(code.LC)
		} else {
			c.emit(code.LI)
		}

	case c.tok.Kind == And: // address-of
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		// The operand just emitted a load-address followed by a load;
		// dropping the load leaves the address itself.
		if _, ok := c.lastLoad(); !ok {
			return c.errf("bad address-of")
		}
		c.text = c.text[:len(c.text)-1]
		c.ty += TypePtr

	case c.tok.Kind == TokenKind('!'):
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		c.emit(code.PSH)
		c.emitOp(code.IMM, 0)
		c.emit(code.EQ)
		c.ty = TypeInt

	case c.tok.Kind == TokenKind('~'):
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		c.emit(code.PSH)
		c.emitOp(code.IMM, -1)
		c.emit(code.XOR)
		c.ty = TypeInt

	case c.tok.Kind == Add: // unary plus
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		c.ty = TypeInt

	case c.tok.Kind == Sub: // unary minus
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind == Num {
			c.emitOp(code.IMM, -c.tok.Val)
			if err := c.next(); err != nil {
				return err
			}
		} else {
			c.emitOp(code.IMM, -1)
			c.emit(code.PSH)
			if err := c.expr(Inc); err != nil {
				return err
			}
			c.emit(code.MUL)
		}
		c.ty = TypeInt

	case c.tok.Kind == Inc || c.tok.Kind == Dec:
		op := c.tok.Kind
		if err := c.next(); err != nil {
			return err
		}
		if err := c.expr(Inc); err != nil {
			return err
		}
		load, ok := c.lastLoad()
		if !ok {
			return c.errf("bad lvalue in pre-increment")
		}
		// Keep the address on the stack for the store, reload the value,
		// bump it by the pointee-scaled step, store it back.
		c.text[len(c.text)-1] = int64(code.PSH)
		c.emit(load)
		c.emit(code.PSH)
		c.emitOp(code.IMM, scale(c.ty))
		if op == Inc {
			c.emit(code.ADD)
		} else {
			c.emit(code.SUB)
		}
		if c.ty == TypeChar {
			c.emit(code.SC)
		} else {
			c.emit(code.SI)
		}

	default:
		return c.errf("bad expression")
	}

	// Binary operators and postfix forms, folded while precedence allows.
	for c.tok.Kind >= lev {
		t := c.ty
		switch c.tok.Kind {
		case Assign:
			if err := c.next(); err != nil {
				return err
			}
			if _, ok := c.lastLoad(); !ok {
				return c.errf("bad lvalue in assignment")
			}
			c.text[len(c.text)-1] = int64(code.PSH)
			if err := c.expr(Assign); err != nil {
				return err
			}
			c.ty = t
			if c.ty == TypeChar {
				c.emit(code.SC)
			} else {
				c.emit(code.SI)
			}

		case Cond:
			if err := c.next(); err != nil {
				return err
			}
			bz := c.hole(code.BZ)
			if err := c.expr(Assign); err != nil {
				return err
			}
			if err := c.skip(TokenKind(':'), "conditional missing colon"); err != nil {
				return err
			}
			jmp := c.hole(code.JMP)
			c.patch(bz, c.pos())
			if err := c.expr(Cond); err != nil {
				return err
			}
			c.patch(jmp, c.pos())

		case Lor: // short-circuit: left nonzero decides
			if err := c.next(); err != nil {
				return err
			}
			bnz := c.hole(code.BNZ)
			if err := c.expr(Lan); err != nil {
				return err
			}
			c.patch(bnz, c.pos())
			c.ty = TypeInt

		case Lan: // short-circuit: left zero decides
			if err := c.next(); err != nil {
				return err
			}
			bz := c.hole(code.BZ)
			if err := c.expr(Or); err != nil {
				return err
			}
			c.patch(bz, c.pos())
			c.ty = TypeInt

		case Or:
			if err := c.binop(code.OR, Xor); err != nil {
				return err
			}
		case Xor:
			if err := c.binop(code.XOR, And); err != nil {
				return err
			}
		case And:
			if err := c.binop(code.AND, Eq); err != nil {
				return err
			}
		case Eq:
			if err := c.binop(code.EQ, Lt); err != nil {
				return err
			}
		case Ne:
			if err := c.binop(code.NE, Lt); err != nil {
				return err
			}
		case Lt:
			if err := c.binop(code.LT, Shl); err != nil {
				return err
			}
		case Gt:
			if err := c.binop(code.GT, Shl); err != nil {
				return err
			}
		case Le:
			if err := c.binop(code.LE, Shl); err != nil {
				return err
			}
		case Ge:
			if err := c.binop(code.GE, Shl); err != nil {
				return err
			}
		case Shl:
			if err := c.binop(code.SHL, Add); err != nil {
				return err
			}
		case Shr:
			if err := c.binop(code.SHR, Add); err != nil {
				return err
			}

		case Add:
			if err := c.next(); err != nil {
				return err
			}
			c.emit(code.PSH)
			if err := c.expr(Mul); err != nil {
				return err
			}
			c.ty = t
			if c.ty > TypePtr { // pointer arithmetic scales the offset
				c.emit(code.PSH)
				c.emitOp(code.IMM, code.WordSize)
				c.emit(code.MUL)
			}
			c.emit(code.ADD)

		case Sub:
			if err := c.next(); err != nil {
				return err
			}
			c.emit(code.PSH)
			if err := c.expr(Mul); err != nil {
				return err
			}
			if t > TypePtr && t == c.ty {
				// pointer difference, in elements
				c.emit(code.SUB)
				c.emit(code.PSH)
				c.emitOp(code.IMM, code.WordSize)
				c.emit(code.DIV)
				c.ty = TypeInt
			} else {
				c.ty = t
				if c.ty > TypePtr {
					c.emit(code.PSH)
					c.emitOp(code.IMM, code.WordSize)
					c.emit(code.MUL)
				}
				c.emit(code.SUB)
			}

		case Mul:
			if err := c.binop(code.MUL, Inc); err != nil {
				return err
			}
		case Div:
			if err := c.binop(code.DIV, Inc); err != nil {
				return err
			}
		case Mod:
			if err := c.binop(code.MOD, Inc); err != nil {
				return err
			}

		case Inc, Dec: // postfix: store the bumped value, keep the old one
			load, ok := c.lastLoad()
			if !ok {
				return c.errf("bad lvalue in post-increment")
			}
			c.text[len(c.text)-1] = int64(code.PSH)
			c.emit(load)
			c.emit(code.PSH)
			c.emitOp(code.IMM, scale(c.ty))
			if c.tok.Kind == Inc {
				c.emit(code.ADD)
			} else {
				c.emit(code.SUB)
			}
			if c.ty == TypeChar {
				c.emit(code.SC)
			} else {
				c.emit(code.SI)
			}
			c.emit(code.PSH)
			c.emitOp(code.IMM, scale(c.ty))
			if c.tok.Kind == Inc {
				c.emit(code.SUB)
			} else {
				c.emit(code.ADD)
			}
			if err := c.next(); err != nil {
				return err
			}

		case Brak: // indexing is pointer arithmetic plus a load
			if err := c.next(); err != nil {
				return err
			}
			c.emit(code.PSH)
			if err := c.expr(Assign); err != nil {
				return err
			}
			if err := c.skip(TokenKind(']'), "close bracket expected"); err != nil {
				return err
			}
			if t > TypePtr {
				c.emit(code.PSH)
				c.emitOp(code.IMM, code.WordSize)
				c.emit(code.MUL)
			} else if t < TypePtr {
				return c.errf("pointer type expected")
			}
			c.emit(code.ADD)
			c.ty = t - TypePtr
			if c.ty == TypeChar {
				c.emit(code.LC)
			} else {
				c.emit(code.LI)
			}

		default:
			return c.errf("unexpected token %s in expression", c.tok.Kind)
		}
	}
	return nil
}

// binop folds one ordinary binary operator: push the left value, parse the
// right operand at the next precedence level, emit op. The result is int.
func (c *Compiler) binop(op code.Opcode, rhsLev TokenKind) error {
	if err := c.next(); err != nil {
		return err
	}
	c.emit(code.PSH)
	if err := c.expr(rhsLev); err != nil {
		return err
	}
	c.emit(op)
	c.ty = TypeInt
	return nil
}

// stmt parses one statement. Control constructs emit a conditional branch
// with a placeholder target that is patched to the current code position
// once the guarded body has been parsed.
func (c *Compiler) stmt() error {
	switch c.tok.Kind {
	case If:
		if err := c.next(); err != nil {
			return err
		}
		if err := c.skip(TokenKind('('), "open paren expected"); err != nil {
			return err
		}
		if err := c.expr(Assign); err != nil {
			return err
		}
		if err := c.skip(TokenKind(')'), "close paren expected"); err != nil {
			return err
		}
		bz := c.hole(code.BZ)
		if err := c.stmt(); err != nil {
			return err
		}
		if c.tok.Kind == Else {
			jmp := c.hole(code.JMP)
			c.patch(bz, c.pos())
			if err := c.next(); err != nil {
				return err
			}
			if err := c.stmt(); err != nil {
				return err
			}
			c.patch(jmp, c.pos())
		} else {
			c.patch(bz, c.pos())
		}
		return nil

	case While:
		if err := c.next(); err != nil {
			return err
		}
		top := c.pos()
		if err := c.skip(TokenKind('('), "open paren expected"); err != nil {
			return err
		}
		if err := c.expr(Assign); err != nil {
			return err
		}
		if err := c.skip(TokenKind(')'), "close paren expected"); err != nil {
			return err
		}
		bz := c.hole(code.BZ)
		if err := c.stmt(); err != nil {
			return err
		}
		c.emitOp(code.JMP, top)
		c.patch(bz, c.pos())
		return nil

	case Return:
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind != TokenKind(';') {
			if err := c.expr(Assign); err != nil {
				return err
			}
		}
		c.emit(code.LEV)
		return c.skip(TokenKind(';'), "semicolon expected")

	case TokenKind('{'):
		if err := c.next(); err != nil {
			return err
		}
		for c.tok.Kind != TokenKind('}') {
			if c.tok.Kind == EOF {
				return c.errf("unexpected eof in block")
			}
			if err := c.stmt(); err != nil {
				return err
			}
		}
		return c.next()

	case TokenKind(';'):
		return c.next()

	default:
		if err := c.expr(Assign); err != nil {
			return err
		}
		return c.skip(TokenKind(';'), "semicolon expected")
	}
}

// parseFunction compiles one function definition. Parameters get ascending
// offsets in declaration order, locals (allowed only at the top of the
// body) descending offsets below the frame base; both shadow same-named
// globals until the closing brace restores them.
func (c *Compiler) parseFunction(fn *Symbol) error {
	fn.Class = Fun
	fn.Val = c.pos()
	if err := c.next(); err != nil { // consume '('
		return err
	}

	n := int64(0)
	for c.tok.Kind != TokenKind(')') {
		ty, err := c.parseTypeSpec()
		if err != nil {
			return err
		}
		if c.tok.Kind != Id {
			return c.errf("bad parameter declaration")
		}
		if c.sym.Class == Loc {
			return c.errf("duplicate parameter definition")
		}
		c.syms.Shadow(c.sym, ty, n)
		n++
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind == TokenKind(',') {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	if err := c.next(); err != nil { // consume ')'
		return err
	}
	if c.tok.Kind != TokenKind('{') {
		return c.errf("bad function definition")
	}
	if err := c.next(); err != nil {
		return err
	}

	n++
	c.loc = n
	for c.tok.Kind == Int || c.tok.Kind == Char {
		bt := TypeInt
		if c.tok.Kind == Char {
			bt = TypeChar
		}
		if err := c.next(); err != nil {
			return err
		}
		for c.tok.Kind != TokenKind(';') {
			ty := bt
			for c.tok.Kind == Mul {
				if err := c.next(); err != nil {
					return err
				}
				ty += TypePtr
			}
			if c.tok.Kind != Id {
				return c.errf("bad local declaration")
			}
			if c.sym.Class == Loc {
				return c.errf("duplicate local definition")
			}
			n++
			c.syms.Shadow(c.sym, ty, n)
			if err := c.next(); err != nil {
				return err
			}
			if c.tok.Kind == TokenKind(',') {
				if err := c.next(); err != nil {
					return err
				}
			}
		}
		if err := c.next(); err != nil {
			return err
		}
	}

	c.emitOp(code.ENT, n-c.loc)
	for c.tok.Kind != TokenKind('}') {
		if c.tok.Kind == EOF {
			return c.errf("unexpected eof in function body")
		}
		if err := c.stmt(); err != nil {
			return err
		}
	}
	c.emit(code.LEV) // implicit return when the body falls through
	c.syms.RestoreLocals()
	return nil
}

// parseGlobalArray reserves a 1-D array in the data segment and binds the
// symbol to a pointer cell initialized with the block's address, so normal
// pointer codegen covers every later use.
func (c *Compiler) parseGlobalArray(d *Symbol, ty Type) error {
	if err := c.next(); err != nil { // consume '['
		return err
	}
	if c.tok.Kind != Num || c.tok.Val <= 0 {
		return c.errf("bad array size")
	}
	count := c.tok.Val
	if err := c.next(); err != nil {
		return err
	}
	if err := c.skip(TokenKind(']'), "close bracket expected"); err != nil {
		return err
	}
	block := c.allocData(count * sizeof(ty))
	c.alignData()
	cell := c.allocData(code.WordSize)
	binary.LittleEndian.PutUint64(c.data[cell:], uint64(block))
	d.Class = Glo
	d.Type = ty + TypePtr
	d.Val = cell
	return nil
}

// parseEnum compiles an enum declaration into Num-class symbols. The tag
// name, when present, is skipped; members number from 0 unless assigned.
func (c *Compiler) parseEnum() error {
	if err := c.next(); err != nil {
		return err
	}
	if c.tok.Kind != TokenKind('{') { // optional tag
		if err := c.next(); err != nil {
			return err
		}
	}
	if c.tok.Kind != TokenKind('{') {
		return nil
	}
	if err := c.next(); err != nil {
		return err
	}
	val := int64(0)
	for c.tok.Kind != TokenKind('}') {
		if c.tok.Kind != Id {
			return c.errf("bad enum identifier")
		}
		d := c.sym
		if err := c.next(); err != nil {
			return err
		}
		if c.tok.Kind == Assign {
			if err := c.next(); err != nil {
				return err
			}
			if c.tok.Kind != Num {
				return c.errf("bad enum initializer")
			}
			val = c.tok.Val
			if err := c.next(); err != nil {
				return err
			}
		}
		d.Class = Num
		d.Type = TypeInt
		d.Val = val
		val++
		if c.tok.Kind == TokenKind(',') {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	return c.next()
}

// program is the top-level loop: a type specifier followed by declarators,
// each either a function definition, a global array, or a global scalar.
func (c *Compiler) program() error {
	if err := c.next(); err != nil {
		return err
	}
	for c.tok.Kind != EOF {
		bt := TypeInt
		switch c.tok.Kind {
		case Int:
			if err := c.next(); err != nil {
				return err
			}
		case Char:
			bt = TypeChar
			if err := c.next(); err != nil {
				return err
			}
		case Enum:
			if err := c.parseEnum(); err != nil {
				return err
			}
		}
		for c.tok.Kind != TokenKind(';') && c.tok.Kind != TokenKind('}') && c.tok.Kind != EOF {
			ty := bt
			for c.tok.Kind == Mul {
				if err := c.next(); err != nil {
					return err
				}
				ty += TypePtr
			}
			if c.tok.Kind != Id {
				return c.errf("bad global declaration")
			}
			d := c.sym
			if d.Class != 0 {
				return c.errf("duplicate global definition of %q", d.Name)
			}
			if err := c.next(); err != nil {
				return err
			}
			d.Type = ty
			switch c.tok.Kind {
			case TokenKind('('):
				if err := c.parseFunction(d); err != nil {
					return err
				}
			case Brak:
				if err := c.parseGlobalArray(d, ty); err != nil {
					return err
				}
			default:
				d.Class = Glo
				d.Val = c.allocData(code.WordSize)
			}
			if c.tok.Kind == TokenKind(',') {
				if err := c.next(); err != nil {
					return err
				}
			}
		}
		if c.tok.Kind != EOF {
			if err := c.next(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Compile runs the whole single pass and returns the program image with the
// entry point resolved to main.
func (c *Compiler) Compile() (*code.Program, error) {
	if err := c.program(); err != nil {
		return nil, err
	}
	mainSym := c.syms.LookupOrInsert("main", hashName("main"))
	if mainSym.Class != Fun {
		return nil, fmt.Errorf("main() not defined")
	}
	return &code.Program{Text: c.text, Data: c.data, Entry: mainSym.Val}, nil
}
