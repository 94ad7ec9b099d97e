package munch

import (
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

// Statement shapes.

func Move(dst, src Pattern[tree.Exp]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.Move)

		return ok && dst.match(x.Dst, env) && src.match(x.Src, env)
	})
}

func ExpStm(e Pattern[tree.Exp]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.ExpStm)

		return ok && e.match(x.Exp, env)
	})
}

func LabelDef(l Pattern[temp.Label]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.LabelStm)

		return ok && l.match(x.Label, env)
	})
}

func Seq(first, second Pattern[tree.Stm]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.Seq)

		return ok && first.match(x.First, env) && second.match(x.Second, env)
	})
}

func Jump(target Pattern[tree.Exp], labels Pattern[[]temp.Label]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.Jump)

		return ok && target.match(x.Target, env) && labels.match(x.Labels, env)
	})
}

func CJump(op Pattern[tree.RelOp], l, r Pattern[tree.Exp], t, f Pattern[temp.Label]) Pattern[tree.Stm] {
	return PatternFunc[tree.Stm](func(n tree.Stm, env Env) bool {
		x, ok := n.(tree.CJump)

		return ok && op.match(x.Op, env) &&
			l.match(x.Left, env) && r.match(x.Right, env) &&
			t.match(x.True, env) && f.match(x.False, env)
	})
}

// Expression shapes.

func Const(v Pattern[int32]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.Const)

		return ok && v.match(int32(x), env)
	})
}

func Temp(t Pattern[temp.Temp]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.Temp)

		return ok && t.match(x.Temp, env)
	})
}

func BinOp(op Pattern[tree.Op], l, r Pattern[tree.Exp]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.BinOp)

		return ok && op.match(x.Op, env) && l.match(x.Left, env) && r.match(x.Right, env)
	})
}

func Mem(addr Pattern[tree.Exp]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.Mem)

		return ok && addr.match(x.Addr, env)
	})
}

func Call(fn Pattern[tree.Exp], args Pattern[[]tree.Exp]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.Call)

		return ok && fn.match(x.Func, env) && args.match(x.Args, env)
	})
}

func Name(l Pattern[temp.Label]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.Name)

		return ok && l.match(x.Label, env)
	})
}

func ESeq(s Pattern[tree.Stm], e Pattern[tree.Exp]) Pattern[tree.Exp] {
	return PatternFunc[tree.Exp](func(n tree.Exp, env Env) bool {
		x, ok := n.(tree.ESeq)

		return ok && s.match(x.Stm, env) && e.match(x.Exp, env)
	})
}

// Binary operator shorthands.

func Plus(l, r Pattern[tree.Exp]) Pattern[tree.Exp]  { return BinOp(Literal(tree.Plus), l, r) }
func Minus(l, r Pattern[tree.Exp]) Pattern[tree.Exp] { return BinOp(Literal(tree.Minus), l, r) }
func Mul(l, r Pattern[tree.Exp]) Pattern[tree.Exp]   { return BinOp(Literal(tree.Mul), l, r) }
func Div(l, r Pattern[tree.Exp]) Pattern[tree.Exp]   { return BinOp(Literal(tree.Div), l, r) }
