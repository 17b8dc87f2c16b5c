// Command c4 compiles and runs a program written in the supported C
// subset. The program's exit status becomes the process exit status.
//
//	c4 [-s] [-d] file [args...]
//
// -s prints each source line followed by the code generated for it and
// skips execution. -d traces every executed instruction to stderr.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/compiler"
	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/vm"
)

func main() {
	listSrc := flag.Bool("s", false, "print source and generated code instead of running")
	trace := flag.Bool("d", false, "trace executed instructions to stderr")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: c4 [-s] [-d] file [args...]")
		os.Exit(2)
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "c4: %v\n", err)
		os.Exit(254)
	}

	var listing io.Writer
	if *listSrc {
		listing = os.Stdout
	}
	prog, err := compiler.Compile(src, listing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "c4: %s: %v\n", flag.Arg(0), err)
		os.Exit(254)
	}
	if *listSrc {
		return
	}

	machine := vm.New(prog)
	if *trace {
		machine.Trace = os.Stderr
	}
	status, err := machine.Run(flag.Args())
	if err != nil {
		var te *vm.TrapError
		if errors.As(err, &te) {
			fmt.Fprintf(os.Stderr, "c4: %v\n", te)
		} else {
			fmt.Fprintf(os.Stderr, "c4: %v\n", err)
		}
		os.Exit(255)
	}
	fmt.Fprintf(os.Stderr, "exit(%d) cycle = %d\n", status, machine.Cycles())
	os.Exit(int(status) & 0xff)
}
