package vm

import (
	"bytes"
	"fmt"
)

// printf implements the PRTF trap. n is the number of words the caller
// pushed: the format string's address followed by the value arguments, in
// source order, so the format sits deepest in the argument window. Returns
// the number of bytes written.
//
// The format subset is %d, %x, %c, %s and %%, with optional '-' and '0'
// flags and a decimal field width. Anything else is copied through.
func (v *VM) printf(n int64) (int64, error) {
	if n < 1 {
		return 0, ErrOutOfBounds
	}
	format, ok := v.cstring(v.arg(n - 1))
	if !ok {
		return 0, ErrOutOfBounds
	}

	var out bytes.Buffer
	argIdx := int64(0)
	nextArg := func() int64 {
		val := v.arg(n - 2 - argIdx)
		argIdx++
		return val
	}

	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			out.WriteByte(ch)
			continue
		}
		start := i
		i++
		if i >= len(format) {
			out.WriteByte('%')
			break
		}
		for i < len(format) && (format[i] == '-' || format[i] == '0') {
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		if i >= len(format) {
			out.WriteString(format[start:])
			break
		}
		spec := format[start : i+1]
		switch format[i] {
		case '%':
			out.WriteByte('%')
		case 'd':
			fmt.Fprintf(&out, spec, nextArg())
		case 'x':
			fmt.Fprintf(&out, spec, nextArg())
		case 'c':
			// C semantics: the int argument is converted to unsigned char.
			fmt.Fprintf(&out, spec, rune(byte(nextArg())))
		case 's':
			s, ok := v.cstring(nextArg())
			if !ok {
				return 0, ErrOutOfBounds
			}
			fmt.Fprintf(&out, spec, s)
		default:
			out.WriteString(spec)
		}
	}

	written, _ := v.stdout().Write(out.Bytes())
	return int64(written), nil
}
