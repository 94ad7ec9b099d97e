package tree

import (
	"fmt"
	"strings"

	"github.com/slowlang/munch/compiler/temp"
)

type (
	Node interface {
		fmt.Stringer

		node()
	}

	Stm interface {
		Node

		stm()
	}

	Exp interface {
		Node

		exp()
	}

	Op    int
	RelOp int

	// Statements

	Move struct {
		Dst Exp
		Src Exp
	}

	ExpStm struct {
		Exp Exp
	}

	LabelStm struct {
		Label temp.Label
	}

	Seq struct {
		First  Stm
		Second Stm
	}

	// Jump transfers control to the address computed by Target.
	// Labels lists every place it may land.
	Jump struct {
		Target Exp
		Labels []temp.Label
	}

	CJump struct {
		Op    RelOp
		Left  Exp
		Right Exp
		True  temp.Label
		False temp.Label
	}

	// Expressions

	Const int32

	Temp struct {
		Temp temp.Temp
	}

	BinOp struct {
		Op    Op
		Left  Exp
		Right Exp
	}

	Mem struct {
		Addr Exp
	}

	Call struct {
		Func Exp
		Args []Exp
	}

	Name struct {
		Label temp.Label
	}

	// ESeq evaluates Stm for side effects, then Exp for the result.
	ESeq struct {
		Stm Stm
		Exp Exp
	}
)

const (
	Plus Op = iota
	Minus
	Mul
	Div
	And
	Or
	LShift
	RShift
	ARShift
	Xor
)

const (
	Eq RelOp = iota
	Ne
	Lt
	Gt
	Le
	Ge
	Ult
	Ule
	Ugt
	Uge
)

var opNames = []string{
	Plus:    "+",
	Minus:   "-",
	Mul:     "*",
	Div:     "/",
	And:     "and",
	Or:      "or",
	LShift:  "<<",
	RShift:  ">>",
	ARShift: "a>>",
	Xor:     "xor",
}

var relNames = []string{
	Eq:  "==",
	Ne:  "!=",
	Lt:  "<",
	Gt:  ">",
	Le:  "<=",
	Ge:  ">=",
	Ult: "u<",
	Ule: "u<=",
	Ugt: "u>",
	Uge: "u>=",
}

func (Move) node()     {}
func (ExpStm) node()   {}
func (LabelStm) node() {}
func (Seq) node()      {}
func (Jump) node()     {}
func (CJump) node()    {}
func (Const) node()    {}
func (Temp) node()     {}
func (BinOp) node()    {}
func (Mem) node()      {}
func (Call) node()     {}
func (Name) node()     {}
func (ESeq) node()     {}

func (Move) stm()     {}
func (ExpStm) stm()   {}
func (LabelStm) stm() {}
func (Seq) stm()      {}
func (Jump) stm()     {}
func (CJump) stm()    {}

func (Const) exp() {}
func (Temp) exp()  {}
func (BinOp) exp() {}
func (Mem) exp()   {}
func (Call) exp()  {}
func (Name) exp()  {}
func (ESeq) exp()  {}

// Seqs chains statements left to right. Nil statements are skipped.
func Seqs(l ...Stm) Stm {
	var r Stm

	for i := len(l) - 1; i >= 0; i-- {
		switch {
		case l[i] == nil:
		case r == nil:
			r = l[i]
		default:
			r = Seq{First: l[i], Second: r}
		}
	}

	return r
}

func Jmp(l temp.Label) Jump {
	return Jump{Target: Name{Label: l}, Labels: []temp.Label{l}}
}

func Add(l, r Exp) BinOp { return BinOp{Op: Plus, Left: l, Right: r} }

func TempOf(t temp.Temp) Temp { return Temp{Temp: t} }

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op%d", int(o))
	}

	return opNames[o]
}

func (o RelOp) String() string {
	if o < 0 || int(o) >= len(relNames) {
		return fmt.Sprintf("rel%d", int(o))
	}

	return relNames[o]
}

// ParseOp returns the operator printed as s.
func ParseOp(s string) (Op, bool) {
	for o, n := range opNames {
		if n == s {
			return Op(o), true
		}
	}

	return 0, false
}

func ParseRelOp(s string) (RelOp, bool) {
	for o, n := range relNames {
		if n == s {
			return RelOp(o), true
		}
	}

	return 0, false
}

// Negate returns the relation true exactly when o is false.
func (o RelOp) Negate() RelOp {
	switch o {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Ge:
		return Lt
	case Gt:
		return Le
	case Le:
		return Gt
	case Ult:
		return Uge
	case Uge:
		return Ult
	case Ugt:
		return Ule
	case Ule:
		return Ugt
	default:
		panic(o)
	}
}

// Commute returns the relation holding for swapped operands.
func (o RelOp) Commute() RelOp {
	switch o {
	case Lt:
		return Gt
	case Gt:
		return Lt
	case Le:
		return Ge
	case Ge:
		return Le
	case Ult:
		return Ugt
	case Ugt:
		return Ult
	case Ule:
		return Uge
	case Uge:
		return Ule
	default:
		return o
	}
}

func (x Move) String() string     { return fmt.Sprintf("(move %v %v)", x.Dst, x.Src) }
func (x ExpStm) String() string   { return fmt.Sprintf("(exp %v)", x.Exp) }
func (x LabelStm) String() string { return fmt.Sprintf("(label %v)", x.Label) }
func (x Seq) String() string      { return fmt.Sprintf("(seq %v %v)", x.First, x.Second) }
func (x CJump) String() string {
	return fmt.Sprintf("(cjump %v %v %v %v %v)", x.Op, x.Left, x.Right, x.True, x.False)
}

func (x Jump) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "(jump %v", x.Target)

	for _, l := range x.Labels {
		fmt.Fprintf(&b, " %v", l)
	}

	b.WriteByte(')')

	return b.String()
}

func (x Const) String() string { return fmt.Sprintf("(const %d)", int32(x)) }
func (x Temp) String() string  { return fmt.Sprintf("(temp %v)", x.Temp) }
func (x BinOp) String() string { return fmt.Sprintf("(%v %v %v)", x.Op, x.Left, x.Right) }
func (x Mem) String() string   { return fmt.Sprintf("(mem %v)", x.Addr) }
func (x Name) String() string  { return fmt.Sprintf("(name %v)", x.Label) }
func (x ESeq) String() string  { return fmt.Sprintf("(eseq %v %v)", x.Stm, x.Exp) }

func (x Call) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "(call %v", x.Func)

	for _, a := range x.Args {
		fmt.Fprintf(&b, " %v", a)
	}

	b.WriteByte(')')

	return b.String()
}
