package compiler

import "github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/code"

// Type encodes the small type system: char, int, and pointers built from
// them. Each level of indirection adds TypePtr, so `int **` is
// TypeInt + 2*TypePtr. Comparisons exploit the encoding: ty > TypeInt means
// "some pointer", ty > TypePtr means "pointer to something word-sized"
// (which is what decides pointer-arithmetic scaling).
type Type int64

const (
	TypeChar Type = iota
	TypeInt
	TypePtr
)

// sizeof returns the size in bytes of a value of type ty: one byte for
// char, one machine word for int and every pointer.
func sizeof(ty Type) int64 {
	if ty == TypeChar {
		return 1
	}
	return code.WordSize
}

// Syscalls lists the library functions the compiler recognizes specially
// and compiles to VM trap instructions instead of ordinary calls. Seeding
// order is fixed to keep the symbol table deterministic.
var Syscalls = []struct {
	Name string
	Op   code.Opcode
}{
	{"open", code.OPEN},
	{"read", code.READ},
	{"close", code.CLOS},
	{"printf", code.PRTF},
	{"malloc", code.MALC},
	{"free", code.FREE},
	{"memset", code.MSET},
	{"memcmp", code.MCMP},
	{"exit", code.EXIT},
}
