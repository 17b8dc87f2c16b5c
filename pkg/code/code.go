// Package code defines the bytecode shared by the compiler and the VM:
// the instruction set, the compiled program image, and a disassembler
// used by both the compile-time listing and the run-time trace.
package code

import (
	"fmt"
	"io"
)

// WordSize is the size in bytes of one VM machine word. The accumulator,
// every stack cell, int variables and pointers are all one word wide.
const WordSize = 8

// Opcode is one VM instruction. The numeric order is load-bearing and must
// not be rearranged: opcodes up to ADJ take one operand word, and the trap
// opcodes OPEN..EXIT double as the Val field of system-call symbols in the
// compiler.
type Opcode int64

const (
	LEA Opcode = iota // load local address: a = bp + operand (in words)
	IMM               // load immediate / global address
	JMP               // unconditional jump
	JSR               // jump to subroutine, pushing the return address
	BZ                // branch if accumulator is zero
	BNZ               // branch if accumulator is nonzero
	ENT               // enter frame: push bp, bp = sp, reserve operand locals
	ADJ               // pop operand words (argument cleanup)
	LEV               // leave frame and return
	LI                // load word at address in accumulator
	LC                // load byte (zero-extended) at address in accumulator
	SI                // store word: *pop() = a
	SC                // store byte: *pop() = byte(a), a = byte(a)
	PSH               // push accumulator

	OR
	XOR
	AND
	EQ
	NE
	LT
	GT
	LE
	GE
	SHL
	SHR
	ADD
	SUB
	MUL
	DIV
	MOD

	OPEN
	READ
	CLOS
	PRTF
	MALC
	FREE
	MSET
	MCMP
	EXIT
)

var opNames = [...]string{
	LEA: "LEA", IMM: "IMM", JMP: "JMP", JSR: "JSR", BZ: "BZ", BNZ: "BNZ",
	ENT: "ENT", ADJ: "ADJ", LEV: "LEV", LI: "LI", LC: "LC", SI: "SI",
	SC: "SC", PSH: "PSH", OR: "OR", XOR: "XOR", AND: "AND", EQ: "EQ",
	NE: "NE", LT: "LT", GT: "GT", LE: "LE", GE: "GE", SHL: "SHL",
	SHR: "SHR", ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD",
	OPEN: "OPEN", READ: "READ", CLOS: "CLOS", PRTF: "PRTF", MALC: "MALC",
	FREE: "FREE", MSET: "MSET", MCMP: "MCMP", EXIT: "EXIT",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int64(op))
}

// HasOperand reports whether op is followed by one operand word in the
// instruction stream.
func (op Opcode) HasOperand() bool {
	return op <= ADJ
}

// Program is the compiled image handed from the compiler to the VM:
// an instruction stream, the initialized data segment, and the resolved
// entry point (index of main's first instruction in Text).
type Program struct {
	Text  []int64
	Data  []byte
	Entry int64
}

// Disasm writes the instructions in Text[from:to] to w, one per line,
// with the mnemonic right-aligned in a fixed-width column.
// It returns the index of the first word not disassembled (== to, unless
// the range ends in the middle of an operand).
func Disasm(w io.Writer, text []int64, from, to int64) int64 {
	i := from
	for i < to {
		op := Opcode(text[i])
		i++
		if op.HasOperand() && i < to {
			fmt.Fprintf(w, "%8s %d\n", op, text[i])
			i++
		} else {
			fmt.Fprintf(w, "%8s\n", op)
		}
	}
	return i
}
