// Package compiler implements a single-pass compiler for a small C subset.
// Lexing, parsing, and code generation are interleaved: source is consumed
// token by token and bytecode for the vm package is emitted as each
// construct is recognized, with no intermediate syntax tree.
package compiler

import (
	"io"

	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/code"
)

// Compile compiles src and returns the program image with the entry point
// resolved to main. When listing is non-nil, every source line is echoed to
// it followed by the instructions generated for that line.
func Compile(src []byte, listing io.Writer) (*code.Program, error) {
	c := NewCompiler(src, listing)
	prog, err := c.Compile()
	if err != nil {
		return nil, err
	}
	if listing != nil {
		// flush instructions emitted after the last newline
		c.listed = code.Disasm(listing, c.text, c.listed, c.pos())
	}
	return prog, nil
}
