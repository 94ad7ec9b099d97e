package temp

import (
	"strconv"
	"sync/atomic"

	"tlog.app/go/tlog/tlwire"
)

type (
	// Temp is a register. Positive values are virtual registers issued by New,
	// negative values are fixed to a physical register of the target.
	Temp int64

	// Reg is a physical register number of some target. Zero is not a register.
	Reg uint8

	Label string
)

var (
	nextTemp  atomic.Int64
	nextLabel atomic.Int64
)

// New returns a fresh virtual register. Safe for concurrent use.
func New() Temp {
	return Temp(nextTemp.Add(1))
}

// Fixed returns the Temp permanently bound to physical register r.
func Fixed(r Reg) Temp {
	if r == 0 {
		panic("zero register")
	}

	return Temp(-int64(r))
}

// Reg reports the physical register t is bound to.
func (t Temp) Reg() (Reg, bool) {
	if t >= 0 {
		return 0, false
	}

	return Reg(-t), true
}

func (t Temp) IsFixed() bool { return t < 0 }

func (t Temp) String() string {
	if r, ok := t.Reg(); ok {
		return "r" + strconv.Itoa(int(r))
	}

	return "t" + strconv.FormatInt(int64(t), 10)
}

func (t Temp) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, t.String())
}

// NewLabel returns a fresh local label.
func NewLabel() Label {
	return Label("L" + strconv.FormatInt(nextLabel.Add(1), 10))
}

// NamedLabel returns the label for a symbol known by name, like a function entry.
func NamedLabel(name string) Label {
	return Label(name)
}

func (l Label) String() string { return string(l) }
