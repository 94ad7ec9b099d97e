package format

import (
	"fmt"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/temp"
)

// Proc appends the listing of a lowered procedure.
// Registers are named by the procedure frame.
func Proc(b []byte, p *frame.Proc) []byte {
	var names func(temp.Temp) string

	if p.Frame != nil {
		names = p.Frame.TempName
	}

	b = append(b, p.Prolog...)
	b = Instrs(b, p.Body, names)
	b = append(b, p.Epilog...)

	return b
}

// Instrs appends one line per instruction.
// Instructions with no text are kept for liveness only and skipped.
func Instrs(b []byte, l []assem.Instr, names func(temp.Temp) string) []byte {
	for _, x := range l {
		s := x.Format(names)
		if s == "" {
			continue
		}

		d := 1
		if _, ok := x.(assem.Label); ok {
			d = 0
		}

		b = app(b, d, "%s\n", s)
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = fmt.Appendf(b, f, args...)
	return b
}
