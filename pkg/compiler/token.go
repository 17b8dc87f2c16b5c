package compiler

import "fmt"

// TokenKind identifies the category of a lexed token. Values below 128 are
// the token's own byte (';', '{', ')', ...); named kinds start at 128 so the
// two ranges never collide. The operator kinds are laid out in precedence
// order, lowest first: the expression parser folds binary operators while
// `current kind >= minimum kind`, so this ordering IS the precedence table
// and must not be rearranged.
type TokenKind int64

const (
	EOF TokenKind = 0 // sentinel: end of input

	Num TokenKind = 128 + iota // integer or character literal
	Fun                        // symbol class: defined function
	Sys                        // symbol class: system-call function
	Glo                        // symbol class: global variable
	Loc                        // symbol class: local variable
	Id                         // identifier
	Str                        // string literal

	// Keywords
	Char
	Else
	Enum
	If
	Int
	Return
	Sizeof
	While

	// Operators, in precedence order
	Assign // =
	Cond   // ?
	Lor    // ||
	Lan    // &&
	Or     // |
	Xor    // ^
	And    // & (also unary address-of)
	Eq     // ==
	Ne     // !=
	Lt     // <
	Gt     // >
	Le     // <=
	Ge     // >=
	Shl    // <<
	Shr    // >>
	Add    // +
	Sub    // -
	Mul    // * (also unary dereference)
	Div    // /
	Mod    // %
	Inc    // ++
	Dec    // --
	Brak   // [
)

var kindNames = map[TokenKind]string{
	EOF: "EOF", Num: "Num", Fun: "Fun", Sys: "Sys", Glo: "Glo", Loc: "Loc",
	Id: "Id", Str: "Str", Char: "char", Else: "else", Enum: "enum", If: "if",
	Int: "int", Return: "return", Sizeof: "sizeof", While: "while",
	Assign: "=", Cond: "?", Lor: "||", Lan: "&&", Or: "|", Xor: "^",
	And: "&", Eq: "==", Ne: "!=", Lt: "<", Gt: ">", Le: "<=", Ge: ">=",
	Shl: "<<", Shr: ">>", Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Inc: "++", Dec: "--", Brak: "[",
}

func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	if k > 0 && k < 128 {
		return fmt.Sprintf("%q", rune(k))
	}
	return fmt.Sprintf("TokenKind(%d)", int64(k))
}

// Token is a single lexical unit produced by the Lexer. Tokens are
// ephemeral: the parser consumes each one as it is produced and none are
// retained.
type Token struct {
	Kind TokenKind
	Val  int64  // decoded value of a Num token
	Str  []byte // decoded bytes of a Str token (no terminator)
	Name string // identifier text of an Id token
	Hash int32  // identifier hash of an Id token
	Line int    // 1-based source line
}
