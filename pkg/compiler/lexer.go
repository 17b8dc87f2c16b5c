package compiler

import "fmt"

// identHashLimit bounds how many leading bytes of an identifier contribute
// to its hash. Longer identifiers are still accepted and compared in full;
// only the hash is computed over the prefix.
const identHashLimit = 64

// Lexer holds all mutable state for a single scanning pass over src.
// It knows nothing about symbols or code: identifiers come back with their
// text and hash, string literals with their decoded bytes; resolving and
// interning them is the caller's business.
type Lexer struct {
	src  []byte
	pos  int // index of the next byte to consume
	line int // current 1-based source line

	// LineHook, when non-nil, is invoked after each newline is consumed,
	// with the line number just finished and its raw text (newline
	// included). The compile-time source/assembly listing hangs off it.
	LineHook func(line int, text []byte)

	lineStart int // start of the line currently being scanned
}

// NewLexer returns a Lexer positioned at the start of src.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src, line: 1}
}

// Line returns the current 1-based source line, used by all diagnostics.
func (l *Lexer) Line() int {
	return l.line
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one byte and returns it.
func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		if l.LineHook != nil {
			l.LineHook(l.line, l.src[l.lineStart:l.pos])
		}
		l.line++
		l.lineStart = l.pos
	}
	return ch
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// skipLineDirective discards a '#'-prefixed preprocessor line. Such lines
// are recognized only syntactically and never expanded.
func (l *Lexer) skipLineDirective() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() error {
	startLine := l.line
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return fmt.Errorf("line %d: unterminated block comment", startLine)
}

// scanIdent collects an identifier and its hash. The hash folds in at most
// identHashLimit leading bytes, then mixes in the full length.
func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	var hash int32
	for l.pos < len(l.src) && (isLetter(l.peek()) || isDigit(l.peek())) {
		if l.pos-start < identHashLimit {
			hash = hash*147 + int32(l.peek())
		}
		l.advance()
	}
	hash = (hash << 6) + int32(l.pos-start)
	return Token{Kind: Id, Name: string(l.src[start:l.pos]), Hash: hash, Line: line}
}

// scanNum collects a decimal, leading-zero octal, or 0x hex integer literal.
func (l *Lexer) scanNum() Token {
	line := l.line
	var val int64
	if l.peek() != '0' {
		for isDigit(l.peek()) {
			val = val*10 + int64(l.advance()-'0')
		}
	} else {
		l.advance()
		if l.peek() == 'x' || l.peek() == 'X' {
			l.advance()
			for isHexDigit(l.peek()) {
				ch := l.advance()
				val = val*16 + int64(ch&15)
				if ch >= 'A' {
					val += 9
				}
			}
		} else {
			for l.peek() >= '0' && l.peek() <= '7' {
				val = val*8 + int64(l.advance()-'0')
			}
		}
	}
	return Token{Kind: Num, Val: val, Line: line}
}

// escape decodes the character following a backslash. Unknown escapes stand
// for the escaped character itself.
func escape(ch byte) byte {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return ch
	}
}

// scanCharOrString collects a character literal (yielding a Num token with
// the ordinal value) or a string literal (yielding a Str token with the
// decoded bytes).
func (l *Lexer) scanCharOrString() (Token, error) {
	line := l.line
	quote := l.advance()
	var buf []byte
	for l.pos < len(l.src) && l.peek() != quote {
		ch := l.advance()
		if ch == '\\' {
			if l.pos >= len(l.src) {
				break
			}
			ch = escape(l.advance())
		}
		buf = append(buf, ch)
	}
	if l.pos >= len(l.src) {
		return Token{}, fmt.Errorf("line %d: unterminated literal", line)
	}
	l.advance()
	if quote == '\'' {
		if len(buf) != 1 {
			return Token{}, fmt.Errorf("line %d: bad character literal", line)
		}
		return Token{Kind: Num, Val: int64(buf[0]), Line: line}, nil
	}
	return Token{Kind: Str, Str: buf, Line: line}, nil
}

// two returns kind2 and consumes the next byte when it equals want,
// otherwise it returns kind1.
func (l *Lexer) two(want byte, kind2, kind1 TokenKind) TokenKind {
	if l.peek() == want {
		l.advance()
		return kind2
	}
	return kind1
}

// Next consumes characters from the current position and returns the next
// token, skipping whitespace, comments, and '#' preprocessor lines. It
// fails fatally on the first unrecognized character.
func (l *Lexer) Next() (Token, error) {
	for l.pos < len(l.src) {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
			continue
		case ch == '#':
			l.skipLineDirective()
			continue
		case ch == '/' && l.peek2() == '/':
			l.skipLineComment()
			continue
		case ch == '/' && l.peek2() == '*':
			l.advance()
			l.advance()
			if err := l.skipBlockComment(); err != nil {
				return Token{}, err
			}
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Line: l.line}, nil
	}

	ch := l.peek()
	line := l.line

	if isLetter(ch) {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanNum(), nil
	}
	if ch == '"' || ch == '\'' {
		return l.scanCharOrString()
	}

	l.advance()
	tok := func(k TokenKind) (Token, error) { return Token{Kind: k, Line: line}, nil }
	switch ch {
	case '=':
		return tok(l.two('=', Eq, Assign))
	case '+':
		return tok(l.two('+', Inc, Add))
	case '-':
		return tok(l.two('-', Dec, Sub))
	case '!':
		if l.peek() == '=' {
			l.advance()
			return tok(Ne)
		}
		return tok(TokenKind('!'))
	case '<':
		if l.peek() == '=' {
			l.advance()
			return tok(Le)
		}
		return tok(l.two('<', Shl, Lt))
	case '>':
		if l.peek() == '=' {
			l.advance()
			return tok(Ge)
		}
		return tok(l.two('>', Shr, Gt))
	case '|':
		return tok(l.two('|', Lor, Or))
	case '&':
		return tok(l.two('&', Lan, And))
	case '^':
		return tok(Xor)
	case '%':
		return tok(Mod)
	case '*':
		return tok(Mul)
	case '/':
		return tok(Div)
	case '?':
		return tok(Cond)
	case '[':
		return tok(Brak)
	case '~', ';', '{', '}', '(', ')', ']', ',', ':':
		return tok(TokenKind(ch))
	}
	return Token{}, fmt.Errorf("line %d: unexpected character %q", line, ch)
}
