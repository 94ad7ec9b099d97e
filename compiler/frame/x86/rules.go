package x86

import (
	"strconv"
	"sync"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/munch"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	binop struct {
		op   tree.Op
		asm  string
		comm bool
	}
)

// Rules returns the x86 rule sets. They are built once and shared.
var Rules = sync.OnceValues(newRules)

var arith = []binop{
	{op: tree.Plus, asm: "add", comm: true},
	{op: tree.Minus, asm: "sub"},
	{op: tree.And, asm: "and", comm: true},
	{op: tree.Or, asm: "or", comm: true},
	{op: tree.Xor, asm: "xor", comm: true},
}

var shifts = []binop{
	{op: tree.LShift, asm: "shl"},
	{op: tree.RShift, asm: "shr"},
	{op: tree.ARShift, asm: "sar"},
}

var jcc = map[tree.RelOp]string{
	tree.Eq:  "je",
	tree.Ne:  "jne",
	tree.Lt:  "jl",
	tree.Gt:  "jg",
	tree.Le:  "jle",
	tree.Ge:  "jge",
	tree.Ult: "jb",
	tree.Ule: "jbe",
	tree.Ugt: "ja",
	tree.Uge: "jae",
}

func newRules() (*munch.StmRules, *munch.ExpRules) {
	stm := munch.NewStmRules("x86 stm")
	exp := munch.NewExpRules("x86 exp")

	addStores(stm)
	addMoves(stm)
	addControl(stm)

	addLoads(exp)
	addArith(exp)
	addMulDiv(exp)
	addShifts(exp)
	addLeaves(exp)
	addCalls(exp)

	return stm, exp
}

func addStores(stm *munch.StmRules) {
	e := munch.NewWildcard[tree.Exp]()
	f := munch.NewWildcard[tree.Exp]()
	i := munch.NewWildcard[int32]()
	j := munch.NewWildcard[int32]()

	stm.Add("store [e+i], j", munch.Move(munch.Mem(munch.Plus(e, munch.Const(i))), munch.Const(j)), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(oper("mov dword [s0"+disp(i.Get(c))+"], "+imm(j.Get(c)), nil, a))
	})

	stm.Add("store [e+i], f", munch.Move(munch.Mem(munch.Plus(e, munch.Const(i))), f), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		m.Emit(oper("mov [s0"+disp(i.Get(c))+"], s1", nil, a, b))
	})

	stm.Add("store [i+e], f", munch.Move(munch.Mem(munch.Plus(munch.Const(i), e)), f), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		m.Emit(oper("mov [s0"+disp(i.Get(c))+"], s1", nil, a, b))
	})

	stm.Add("store [e-i], f", munch.Move(munch.Mem(munch.Minus(e, munch.Const(i))), f), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		m.Emit(oper("mov [s0"+disp(-i.Get(c))+"], s1", nil, a, b))
	})

	stm.Add("store [i], f", munch.Move(munch.Mem(munch.Const(i)), f), func(m *munch.Muncher, c munch.Env) {
		b := m.Exp(f.Get(c))

		m.Emit(oper("mov ["+imm(i.Get(c))+"], s0", nil, b))
	})

	stm.Add("store [e], j", munch.Move(munch.Mem(e), munch.Const(j)), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(oper("mov dword [s0], "+imm(j.Get(c)), nil, a))
	})

	stm.Add("store [e], f", munch.Move(munch.Mem(e), f), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		m.Emit(oper("mov [s0], s1", nil, a, b))
	})
}

func addMoves(stm *munch.StmRules) {
	d := munch.NewWildcard[temp.Temp]()
	e := munch.NewWildcard[tree.Exp]()
	i := munch.NewWildcard[int32]()

	stm.Add("load d, i", munch.Move(munch.Temp(d), munch.Const(i)), func(m *munch.Muncher, c munch.Env) {
		m.Emit(oper("mov d0, "+imm(i.Get(c)), []temp.Temp{d.Get(c)}))
	})

	stm.Add("load d, [e+i]", munch.Move(munch.Temp(d), munch.Mem(munch.Plus(e, munch.Const(i)))), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(oper("mov d0, [s0"+disp(i.Get(c))+"]", []temp.Temp{d.Get(c)}, a))
	})

	stm.Add("move d, e", munch.Move(munch.Temp(d), e), func(m *munch.Muncher, c munch.Env) {
		m.Emit(move(d.Get(c), m.Exp(e.Get(c))))
	})

	stm.Add("exp", munch.ExpStm(e), func(m *munch.Muncher, c munch.Env) {
		m.Exp(e.Get(c))
	})
}

func addControl(stm *munch.StmRules) {
	l := munch.NewWildcard[temp.Label]()
	s := munch.NewWildcard[tree.Stm]()
	r := munch.NewWildcard[tree.Stm]()
	e := munch.NewWildcard[tree.Exp]()
	f := munch.NewWildcard[tree.Exp]()
	i := munch.NewWildcard[int32]()
	ls := munch.NewWildcard[[]temp.Label]()
	op := munch.NewWildcard[tree.RelOp]()
	t := munch.NewWildcard[temp.Label]()
	fl := munch.NewWildcard[temp.Label]()

	stm.Add("label", munch.LabelDef(l), func(m *munch.Muncher, c munch.Env) {
		l := l.Get(c)

		m.Emit(assem.Label{Asm: string(l) + ":", Label: l})
	})

	stm.Add("seq", munch.Seq(s, r), func(m *munch.Muncher, c munch.Env) {
		m.Stm(s.Get(c))
		m.Stm(r.Get(c))
	})

	stm.Add("jmp l", munch.Jump(munch.Name(l), ls), func(m *munch.Muncher, c munch.Env) {
		m.Emit(assem.Oper{Asm: "jmp j0", Jumps: []temp.Label{l.Get(c)}})
	})

	stm.Add("jmp e", munch.Jump(e, ls), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(assem.Oper{Asm: "jmp s0", Src: []temp.Temp{a}, Jumps: ls.Get(c)})
	})

	stm.Add("cjump e, i", munch.CJump(op, e, munch.Const(i), t, fl), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(
			oper("cmp s0, "+imm(i.Get(c)), nil, a),
			branch(op.Get(c), t.Get(c), fl.Get(c)),
		)
	})

	stm.Add("cjump i, e", munch.CJump(op, munch.Const(i), e, t, fl), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))

		m.Emit(
			oper("cmp s0, "+imm(i.Get(c)), nil, a),
			branch(op.Get(c).Commute(), t.Get(c), fl.Get(c)),
		)
	})

	stm.Add("cjump e, f", munch.CJump(op, e, f, t, fl), func(m *munch.Muncher, c munch.Env) {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		m.Emit(
			oper("cmp s0, s1", nil, a, b),
			branch(op.Get(c), t.Get(c), fl.Get(c)),
		)
	})
}

func addLoads(exp *munch.ExpRules) {
	e := munch.NewWildcard[tree.Exp]()
	i := munch.NewWildcard[int32]()

	exp.Add("[e+i]", munch.Mem(munch.Plus(e, munch.Const(i))), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "mov d0, [s0"+disp(i.Get(c))+"]", a)
	})

	exp.Add("[i+e]", munch.Mem(munch.Plus(munch.Const(i), e)), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "mov d0, [s0"+disp(i.Get(c))+"]", a)
	})

	exp.Add("[e-i]", munch.Mem(munch.Minus(e, munch.Const(i))), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "mov d0, [s0"+disp(-i.Get(c))+"]", a)
	})

	exp.Add("[i]", munch.Mem(munch.Const(i)), func(m *munch.Muncher, c munch.Env) temp.Temp {
		return def(m, "mov d0, ["+imm(i.Get(c))+"]")
	})

	exp.Add("[e]", munch.Mem(e), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "mov d0, [s0]", a)
	})
}

// addArith adds two-address operations: the left operand is copied
// into the result register, which is then updated in place.
func addArith(exp *munch.ExpRules) {
	for _, o := range arith {
		o := o

		e := munch.NewWildcard[tree.Exp]()
		f := munch.NewWildcard[tree.Exp]()
		i := munch.NewWildcard[int32]()

		op := munch.Literal(o.op)

		exp.Add(o.asm+" e, i", munch.BinOp(op, e, munch.Const(i)), func(m *munch.Muncher, c munch.Env) temp.Temp {
			t := copyOf(m, m.Exp(e.Get(c)))

			m.Emit(oper(o.asm+" d0, "+imm(i.Get(c)), []temp.Temp{t}, t))

			return t
		})

		if o.comm {
			exp.Add(o.asm+" i, e", munch.BinOp(op, munch.Const(i), e), func(m *munch.Muncher, c munch.Env) temp.Temp {
				t := copyOf(m, m.Exp(e.Get(c)))

				m.Emit(oper(o.asm+" d0, "+imm(i.Get(c)), []temp.Temp{t}, t))

				return t
			})
		}

		exp.Add(o.asm+" e, f", munch.BinOp(op, e, f), func(m *munch.Muncher, c munch.Env) temp.Temp {
			a := m.Exp(e.Get(c))
			b := m.Exp(f.Get(c))
			t := copyOf(m, a)

			m.Emit(oper(o.asm+" d0, s1", []temp.Temp{t}, t, b))

			return t
		})
	}
}

func addMulDiv(exp *munch.ExpRules) {
	e := munch.NewWildcard[tree.Exp]()
	f := munch.NewWildcard[tree.Exp]()
	i := munch.NewWildcard[int32]()

	exp.Add("imul e, i", munch.Mul(e, munch.Const(i)), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "imul d0, s0, "+imm(i.Get(c)), a)
	})

	exp.Add("imul i, e", munch.Mul(munch.Const(i), e), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))

		return def(m, "imul d0, s0, "+imm(i.Get(c)), a)
	})

	exp.Add("imul e, f", munch.Mul(e, f), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))
		t := copyOf(m, a)

		m.Emit(oper("imul d0, s1", []temp.Temp{t}, t, b))

		return t
	})

	// idiv divides edx:eax, leaving the quotient in eax.
	exp.Add("idiv e, f", munch.Div(e, f), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(e.Get(c))
		b := m.Exp(f.Get(c))

		eax, edx := temp.Fixed(EAX), temp.Fixed(EDX)

		m.Emit(
			move(eax, a),
			oper("cdq", []temp.Temp{edx}, eax),
			oper("idiv s0", []temp.Temp{eax, edx}, b, eax, edx),
		)

		return copyOf(m, eax)
	})
}

func addShifts(exp *munch.ExpRules) {
	for _, o := range shifts {
		o := o

		e := munch.NewWildcard[tree.Exp]()
		f := munch.NewWildcard[tree.Exp]()
		i := munch.NewWildcard[int32]()

		op := munch.Literal(o.op)

		exp.Add(o.asm+" e, i", munch.BinOp(op, e, munch.Const(i)), func(m *munch.Muncher, c munch.Env) temp.Temp {
			t := copyOf(m, m.Exp(e.Get(c)))

			m.Emit(oper(o.asm+" d0, "+imm(i.Get(c)&31), []temp.Temp{t}, t))

			return t
		})

		// Variable shift count must be in cl.
		exp.Add(o.asm+" e, f", munch.BinOp(op, e, f), func(m *munch.Muncher, c munch.Env) temp.Temp {
			a := m.Exp(e.Get(c))
			b := m.Exp(f.Get(c))
			t := copyOf(m, a)

			ecx := temp.Fixed(ECX)

			m.Emit(
				move(ecx, b),
				oper(o.asm+" d0, cl", []temp.Temp{t}, t, ecx),
			)

			return t
		})
	}
}

func addLeaves(exp *munch.ExpRules) {
	i := munch.NewWildcard[int32]()
	t := munch.NewWildcard[temp.Temp]()
	l := munch.NewWildcard[temp.Label]()
	s := munch.NewWildcard[tree.Stm]()
	e := munch.NewWildcard[tree.Exp]()

	exp.Add("const", munch.Const(i), func(m *munch.Muncher, c munch.Env) temp.Temp {
		return def(m, "mov d0, "+imm(i.Get(c)))
	})

	exp.Add("temp", munch.Temp(t), func(m *munch.Muncher, c munch.Env) temp.Temp {
		return t.Get(c)
	})

	exp.Add("name", munch.Name(l), func(m *munch.Muncher, c munch.Env) temp.Temp {
		t := temp.New()

		m.Emit(assem.Oper{Asm: "mov d0, l0", Dst: []temp.Temp{t}, Syms: []temp.Label{l.Get(c)}})

		return t
	})

	exp.Add("eseq", munch.ESeq(s, e), func(m *munch.Muncher, c munch.Env) temp.Temp {
		m.Stm(s.Get(c))

		return m.Exp(e.Get(c))
	})
}

// addCalls lowers cdecl calls: arguments are pushed right to left,
// the caller pops them, the result is in eax.
func addCalls(exp *munch.ExpRules) {
	l := munch.NewWildcard[temp.Label]()
	f := munch.NewWildcard[tree.Exp]()
	args := munch.NewWildcard[[]tree.Exp]()

	exp.Add("call l", munch.Call(munch.Name(l), args), func(m *munch.Muncher, c munch.Env) temp.Temp {
		n := pushArgs(m, args.Get(c))

		m.Emit(assem.Oper{Asm: "call l0", Dst: clone(callerSaved), Syms: []temp.Label{l.Get(c)}})

		return afterCall(m, n)
	})

	exp.Add("call f", munch.Call(f, args), func(m *munch.Muncher, c munch.Env) temp.Temp {
		a := m.Exp(f.Get(c))
		n := pushArgs(m, args.Get(c))

		m.Emit(oper("call s0", clone(callerSaved), a))

		return afterCall(m, n)
	})
}

// pushArgs evaluates args in order, then pushes them in reverse.
func pushArgs(m *munch.Muncher, args []tree.Exp) int {
	regs := make([]temp.Temp, len(args))

	for k, a := range args {
		if _, ok := a.(tree.Const); ok {
			continue
		}

		regs[k] = m.Exp(a)
	}

	for k := len(args) - 1; k >= 0; k-- {
		if x, ok := args[k].(tree.Const); ok {
			m.Emit(oper("push dword "+imm(int32(x)), []temp.Temp{sp}, sp))
			continue
		}

		m.Emit(oper("push s0", []temp.Temp{sp}, regs[k], sp))
	}

	return len(args)
}

func afterCall(m *munch.Muncher, n int) temp.Temp {
	if n != 0 {
		m.Emit(oper("add esp, "+strconv.Itoa(n*WordSize), []temp.Temp{sp}, sp))
	}

	return copyOf(m, rv)
}

func def(m *munch.Muncher, asm string, src ...temp.Temp) temp.Temp {
	t := temp.New()

	m.Emit(oper(asm, []temp.Temp{t}, src...))

	return t
}

func copyOf(m *munch.Muncher, src temp.Temp) temp.Temp {
	t := temp.New()

	m.Emit(move(t, src))

	return t
}

func branch(op tree.RelOp, t, f temp.Label) assem.Oper {
	return assem.Oper{Asm: jcc[op] + " j0", Jumps: []temp.Label{t, f}}
}

func oper(asm string, dst []temp.Temp, src ...temp.Temp) assem.Oper {
	return assem.Oper{Asm: asm, Dst: dst, Src: src}
}

func move(dst, src temp.Temp) assem.Move {
	return assem.Move{Asm: "mov d0, s0", Dst: dst, Src: src}
}

func imm(i int32) string {
	return strconv.FormatInt(int64(i), 10)
}

func disp(i int32) string {
	switch {
	case i < 0:
		return " - " + strconv.FormatInt(-int64(i), 10)
	case i > 0:
		return " + " + strconv.FormatInt(int64(i), 10)
	default:
		return ""
	}
}

func clone(l []temp.Temp) []temp.Temp {
	return append([]temp.Temp(nil), l...)
}
