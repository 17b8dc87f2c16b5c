// Package vm executes compiled program images on a word-oriented stack
// machine with a single accumulator. Code lives in its own instruction
// stream; data, heap, and stack share one byte-addressable memory.
package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/code"
	"github.com/Reham-Alsereidi/c4-rust-team-AlBithnah/pkg/vfs"
)

const (
	// DefaultHeapSize is the malloc arena reserved above the data segment.
	DefaultHeapSize = 256 * 1024
	// DefaultStackSize is reserved at the top of memory for the call stack.
	DefaultStackSize = 256 * 1024
)

var (
	ErrDivideByZero       = errors.New("divide by zero")
	ErrOutOfBounds        = errors.New("memory access out of bounds")
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrStackOverflow      = errors.New("stack overflow")
)

// TrapError reports a fatal run-time fault: which instruction faulted,
// where, and why. It unwraps to one of the Err* sentinels.
type TrapError struct {
	PC  int64
	Op  code.Opcode
	Err error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("trap at pc=%d (%s): %v", e.PC, e.Op, e.Err)
}

func (e *TrapError) Unwrap() error { return e.Err }

// VM executes one program image. Exported fields may be set between New
// and Run to redirect output, substitute a file system, or resize memory.
type VM struct {
	// Stdout receives everything the program prints.
	// If nil, os.Stdout is used.
	Stdout io.Writer
	// FS resolves the program's open() calls. If nil, the host file
	// system is used.
	FS vfs.FS
	// Trace, when non-nil, receives one line per executed instruction.
	Trace io.Writer

	HeapSize  int64
	StackSize int64

	text   []int64
	data   []byte
	entry  int64
	haltPC int64

	mem        []byte
	heapPtr    int64 // next free heap byte
	heapEnd    int64
	stackLimit int64 // sp below this is an overflow

	pc, sp, bp, a int64
	cycle         int64
	popFault      bool // set by pop on stack underflow

	files  map[int64]vfs.File
	nextFD int64
}

// New prepares a VM for prog. The instruction stream is extended with a
// two-word halt stub whose index serves as main's return address, so that
// falling off the end of main exits with main's return value.
func New(prog *code.Program) *VM {
	v := &VM{
		HeapSize:  DefaultHeapSize,
		StackSize: DefaultStackSize,
		entry:     prog.Entry,
		data:      prog.Data,
		files:     make(map[int64]vfs.File),
		nextFD:    3,
	}
	v.text = make([]int64, len(prog.Text), len(prog.Text)+2)
	copy(v.text, prog.Text)
	v.haltPC = int64(len(v.text))
	v.text = append(v.text, int64(code.PSH), int64(code.EXIT))
	return v
}

func (v *VM) stdout() io.Writer {
	if v.Stdout != nil {
		return v.Stdout
	}
	return os.Stdout
}

func (v *VM) fs() vfs.FS {
	if v.FS != nil {
		return v.FS
	}
	return vfs.HostFS{}
}

// Cycles returns the number of instructions executed so far.
func (v *VM) Cycles() int64 { return v.cycle }

// checkRange reports whether [addr, addr+n) lies inside memory. Compared
// by subtraction so that huge addr or n cannot wrap around int64.
func (v *VM) checkRange(addr, n int64) bool {
	if addr < 0 || n < 0 || addr > int64(len(v.mem)) {
		return false
	}
	return n <= int64(len(v.mem))-addr
}

func (v *VM) loadWord(addr int64) (int64, bool) {
	if !v.checkRange(addr, code.WordSize) {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(v.mem[addr:])), true
}

func (v *VM) storeWord(addr, val int64) bool {
	if !v.checkRange(addr, code.WordSize) {
		return false
	}
	binary.LittleEndian.PutUint64(v.mem[addr:], uint64(val))
	return true
}

// cstring reads the NUL-terminated byte string starting at addr.
func (v *VM) cstring(addr int64) (string, bool) {
	if addr < 0 || addr >= int64(len(v.mem)) {
		return "", false
	}
	end := addr
	for end < int64(len(v.mem)) && v.mem[end] != 0 {
		end++
	}
	if end == int64(len(v.mem)) {
		return "", false
	}
	return string(v.mem[addr:end]), true
}

// alloc carves n bytes out of the heap, word-aligned, returning 0 when the
// arena is exhausted. There is no free list; free() is a no-op. The size is
// range-checked before rounding so neither step can wrap int64.
func (v *VM) alloc(n int64) int64 {
	if n < 0 || n > math.MaxInt64-code.WordSize+1 {
		return 0
	}
	n = (n + code.WordSize - 1) &^ (code.WordSize - 1)
	if n > v.heapEnd-v.heapPtr {
		return 0
	}
	addr := v.heapPtr
	v.heapPtr += n
	return addr
}

// setup lays out memory (data at address zero, heap above it, stack at the
// top growing down), materializes argc/argv on the heap, and pushes main's
// arguments with the halt stub's index as the return address.
func (v *VM) setup(args []string) {
	dataEnd := (int64(len(v.data)) + code.WordSize - 1) &^ (code.WordSize - 1)
	total := dataEnd + v.HeapSize + v.StackSize
	v.mem = make([]byte, total)
	copy(v.mem, v.data)
	v.heapPtr = dataEnd
	v.heapEnd = dataEnd + v.HeapSize
	v.stackLimit = v.heapEnd
	v.sp = total
	v.bp = total

	argc := int64(len(args))
	ptrs := make([]int64, argc)
	for i, arg := range args {
		addr := v.alloc(int64(len(arg)) + 1)
		copy(v.mem[addr:], arg)
		ptrs[i] = addr
	}
	argv := v.alloc(argc * code.WordSize)
	for i, p := range ptrs {
		v.storeWord(argv+int64(i)*code.WordSize, p)
	}

	v.push(argc)
	v.push(argv)
	v.push(v.haltPC)
	v.pc = v.entry
}

func (v *VM) push(val int64) bool {
	v.sp -= code.WordSize
	if v.sp < v.stackLimit || v.sp+code.WordSize > int64(len(v.mem)) {
		return false
	}
	binary.LittleEndian.PutUint64(v.mem[v.sp:], uint64(val))
	return true
}

func (v *VM) pop() int64 {
	val, ok := v.loadWord(v.sp)
	if !ok {
		v.popFault = true
	}
	v.sp += code.WordSize
	return val
}

// arg returns the i-th word above sp, the argument window layout left by
// the caller's pushes.
func (v *VM) arg(i int64) int64 {
	val, _ := v.loadWord(v.sp + i*code.WordSize)
	return val
}

// Run executes the program until it exits or faults, returning the
// program's exit status. args becomes main's argc/argv.
func (v *VM) Run(args []string) (int64, error) {
	v.setup(args)
	for {
		if v.pc < 0 || v.pc >= int64(len(v.text)) {
			return 0, &TrapError{PC: v.pc, Op: code.JMP, Err: ErrOutOfBounds}
		}
		at := v.pc
		op := code.Opcode(v.text[v.pc])
		v.pc++
		var operand int64
		if op.HasOperand() {
			if v.pc >= int64(len(v.text)) {
				return 0, &TrapError{PC: at, Op: op, Err: ErrOutOfBounds}
			}
			operand = v.text[v.pc]
			v.pc++
		}
		v.cycle++
		if v.Trace != nil {
			fmt.Fprintf(v.Trace, "%d> %8s", v.cycle, op)
			if op.HasOperand() {
				fmt.Fprintf(v.Trace, " %d", operand)
			}
			switch op {
			case code.JSR, code.ENT, code.ADJ, code.LEV:
				fmt.Fprintf(v.Trace, "  sp=%d bp=%d", v.sp, v.bp)
			}
			fmt.Fprintln(v.Trace)
		}

		trap := func(err error) (int64, error) {
			return 0, &TrapError{PC: at, Op: op, Err: err}
		}

		switch op {
		case code.LEA:
			v.a = v.bp + operand*code.WordSize
		case code.IMM:
			v.a = operand
		case code.JMP:
			v.pc = operand
		case code.JSR:
			if !v.push(v.pc) {
				return trap(ErrStackOverflow)
			}
			v.pc = operand
		case code.BZ:
			if v.a == 0 {
				v.pc = operand
			}
		case code.BNZ:
			if v.a != 0 {
				v.pc = operand
			}
		case code.ENT:
			if !v.push(v.bp) {
				return trap(ErrStackOverflow)
			}
			v.bp = v.sp
			v.sp -= operand * code.WordSize
			if v.sp < v.stackLimit {
				return trap(ErrStackOverflow)
			}
		case code.ADJ:
			v.sp += operand * code.WordSize
		case code.LEV:
			v.sp = v.bp
			v.bp = v.pop()
			v.pc = v.pop()
		case code.LI:
			val, ok := v.loadWord(v.a)
			if !ok {
				return trap(ErrOutOfBounds)
			}
			v.a = val
		case code.LC:
			if !v.checkRange(v.a, 1) {
				return trap(ErrOutOfBounds)
			}
			v.a = int64(v.mem[v.a])
		case code.SI:
			if !v.storeWord(v.pop(), v.a) {
				return trap(ErrOutOfBounds)
			}
		case code.SC:
			addr := v.pop()
			if !v.checkRange(addr, 1) {
				return trap(ErrOutOfBounds)
			}
			v.mem[addr] = byte(v.a)
			v.a = int64(byte(v.a))
		case code.PSH:
			if !v.push(v.a) {
				return trap(ErrStackOverflow)
			}

		case code.OR:
			v.a = v.pop() | v.a
		case code.XOR:
			v.a = v.pop() ^ v.a
		case code.AND:
			v.a = v.pop() & v.a
		case code.EQ:
			v.a = boolWord(v.pop() == v.a)
		case code.NE:
			v.a = boolWord(v.pop() != v.a)
		case code.LT:
			v.a = boolWord(v.pop() < v.a)
		case code.GT:
			v.a = boolWord(v.pop() > v.a)
		case code.LE:
			v.a = boolWord(v.pop() <= v.a)
		case code.GE:
			v.a = boolWord(v.pop() >= v.a)
		case code.SHL:
			v.a = v.pop() << uint64(v.a)
		case code.SHR:
			v.a = v.pop() >> uint64(v.a)
		case code.ADD:
			v.a = v.pop() + v.a
		case code.SUB:
			v.a = v.pop() - v.a
		case code.MUL:
			v.a = v.pop() * v.a
		case code.DIV:
			if v.a == 0 {
				return trap(ErrDivideByZero)
			}
			v.a = v.pop() / v.a
		case code.MOD:
			if v.a == 0 {
				return trap(ErrDivideByZero)
			}
			v.a = v.pop() % v.a

		case code.OPEN:
			path, ok := v.cstring(v.arg(1))
			if !ok {
				return trap(ErrOutOfBounds)
			}
			f, err := v.fs().Open(path)
			if err != nil {
				v.a = -1
				break
			}
			fd := v.nextFD
			v.nextFD++
			v.files[fd] = f
			v.a = fd
		case code.READ:
			fd, buf, count := v.arg(2), v.arg(1), v.arg(0)
			f, ok := v.files[fd]
			if !ok {
				v.a = -1
				break
			}
			if !v.checkRange(buf, count) {
				return trap(ErrOutOfBounds)
			}
			n, err := io.ReadFull(f, v.mem[buf:buf+count])
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				v.a = -1
				break
			}
			v.a = int64(n)
		case code.CLOS:
			fd := v.arg(0)
			f, ok := v.files[fd]
			if !ok {
				v.a = -1
				break
			}
			f.Close()
			delete(v.files, fd)
			v.a = 0
		case code.PRTF:
			// The argument count is the operand of the ADJ that must
			// follow; a zero-argument call compiles without one.
			if v.pc+1 >= int64(len(v.text)) || code.Opcode(v.text[v.pc]) != code.ADJ {
				return trap(ErrIllegalInstruction)
			}
			n := v.text[v.pc+1]
			written, err := v.printf(n)
			if err != nil {
				return trap(err)
			}
			v.a = written
		case code.MALC:
			v.a = v.alloc(v.arg(0))
		case code.FREE:
			v.a = 0
		case code.MSET:
			dst, val, n := v.arg(2), v.arg(1), v.arg(0)
			if !v.checkRange(dst, n) {
				return trap(ErrOutOfBounds)
			}
			for i := int64(0); i < n; i++ {
				v.mem[dst+i] = byte(val)
			}
			v.a = dst
		case code.MCMP:
			p, q, n := v.arg(2), v.arg(1), v.arg(0)
			if !v.checkRange(p, n) || !v.checkRange(q, n) {
				return trap(ErrOutOfBounds)
			}
			v.a = 0
			for i := int64(0); i < n; i++ {
				if v.mem[p+i] != v.mem[q+i] {
					v.a = int64(v.mem[p+i]) - int64(v.mem[q+i])
					break
				}
			}
		case code.EXIT:
			status := v.arg(0)
			v.closeAll()
			return status, nil

		default:
			return trap(ErrIllegalInstruction)
		}

		if v.popFault {
			return trap(ErrOutOfBounds)
		}
	}
}

func (v *VM) closeAll() {
	for fd, f := range v.files {
		f.Close()
		delete(v.files, fd)
	}
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
