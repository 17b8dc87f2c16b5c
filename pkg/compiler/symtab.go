package compiler

// Symbol is the compile-time record for one declared name.
//
// Kind is Id for ordinary identifiers and the keyword's own TokenKind for
// keywords, which live in the same table so that one lookup classifies the
// token. Class says where the value lives: Num (enumeration constant), Fun
// (code address), Sys (trap opcode), Glo (data address), Loc (frame offset).
//
// While a parameter or local shadows a global of the same name, the
// global's class/type/value triple is parked in the saved* fields and put
// back when the function ends. One level is all the grammar allows, so one
// slot is all there is.
type Symbol struct {
	Name  string
	Hash  int32
	Kind  TokenKind
	Class TokenKind
	Type  Type
	Val   int64

	savedClass TokenKind
	savedType  Type
	savedVal   int64
}

// SymbolTable maps identifier names to Symbols. Insertion order is kept so
// that scope restoration walks symbols deterministically.
type SymbolTable struct {
	syms  []*Symbol
	index map[string]*Symbol
}

// NewSymbolTable returns a table pre-seeded with the language keywords and
// the system-call functions the compiler recognizes by name.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{index: make(map[string]*Symbol)}

	keywords := []struct {
		name string
		kind TokenKind
	}{
		{"char", Char}, {"else", Else}, {"enum", Enum}, {"if", If},
		{"int", Int}, {"return", Return}, {"sizeof", Sizeof}, {"while", While},
		// void is accepted and treated as char.
		{"void", Char},
	}
	for _, kw := range keywords {
		sym := st.LookupOrInsert(kw.name, hashName(kw.name))
		sym.Kind = kw.kind
	}

	for _, sc := range Syscalls {
		sym := st.LookupOrInsert(sc.Name, hashName(sc.Name))
		sym.Class = Sys
		sym.Type = TypeInt
		sym.Val = int64(sc.Op)
	}
	return st
}

// hashName computes the identifier hash for a name arriving as a string
// rather than from the lexer (keyword/syscall seeding, tests).
func hashName(name string) int32 {
	var h int32
	for i := 0; i < len(name) && i < identHashLimit; i++ {
		h = h*147 + int32(name[i])
	}
	return (h << 6) + int32(len(name))
}

// LookupOrInsert returns the Symbol for name, creating an Id-kind record on
// first sight. The hash is a cheap filter checked before the (authoritative)
// name comparison.
func (st *SymbolTable) LookupOrInsert(name string, hash int32) *Symbol {
	if sym, ok := st.index[name]; ok && sym.Hash == hash {
		return sym
	}
	sym := &Symbol{Name: name, Hash: hash, Kind: Id}
	st.syms = append(st.syms, sym)
	st.index[name] = sym
	return sym
}

// Shadow turns sym into a local of the given type at the given frame
// offset, saving whatever it was before. Callers must reject symbols that
// are already Loc (duplicate parameter/local) before shadowing.
func (st *SymbolTable) Shadow(sym *Symbol, ty Type, offset int64) {
	sym.savedClass = sym.Class
	sym.savedType = sym.Type
	sym.savedVal = sym.Val
	sym.Class = Loc
	sym.Type = ty
	sym.Val = offset
}

// RestoreLocals undoes every active shadowing, called once when the
// enclosing function's parsing completes.
func (st *SymbolTable) RestoreLocals() {
	for _, sym := range st.syms {
		if sym.Class == Loc {
			sym.Class = sym.savedClass
			sym.Type = sym.savedType
			sym.Val = sym.savedVal
		}
	}
}
