package assem

import (
	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/set"
	"github.com/slowlang/munch/compiler/temp"
)

// Validate checks that every generated register is defined by an earlier
// instruction in list order before it is used. Fixed registers and liveIn
// are considered defined on entry.
func Validate(instrs []Instr, liveIn ...temp.Temp) error {
	defined := set.MakeBits(lowest(instrs, liveIn))

	for _, t := range liveIn {
		if !t.IsFixed() {
			defined.Set(t)
		}
	}

	for i, x := range instrs {
		for _, t := range x.Uses() {
			if t.IsFixed() || defined.IsSet(t) {
				continue
			}

			return errors.New("instr %d (%v): use of undefined register %v", i, x, t)
		}

		for _, t := range x.Defs() {
			if !t.IsFixed() {
				defined.Set(t)
			}
		}
	}

	return nil
}

// lowest is the smallest generated register mentioned, or 1.
func lowest(instrs []Instr, liveIn []temp.Temp) temp.Temp {
	var low temp.Temp

	scan := func(l []temp.Temp) {
		for _, t := range l {
			if !t.IsFixed() && (low == 0 || t < low) {
				low = t
			}
		}
	}

	scan(liveIn)

	for _, x := range instrs {
		scan(x.Uses())
		scan(x.Defs())
	}

	if low == 0 {
		low = 1
	}

	return low
}
