package irtext

import (
	"context"
	"fmt"
	"math"
	"os"

	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/ast"
	"github.com/slowlang/munch/compiler/back"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/parse"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	// Func is a function declaration:
	//
	//	(func NAME (ESCAPE...) STM)
	Func struct {
		Name    temp.Label
		Escapes []bool
		Body    ast.Node

		st *parse.State
	}

	builder struct {
		f  frame.Frame
		st *parse.State

		temps  map[string]temp.Temp
		locals map[string]frame.Access
	}

	// Error is a malformed form at a source position.
	Error struct {
		Pos int
		Msg string

		loc string
	}
)

func ParseFile(ctx context.Context, name string) ([]Func, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, text)
}

func Parse(ctx context.Context, name string, text []byte) ([]Func, error) {
	st := parse.New()

	st.AddFile(name, text)

	x, err := st.Parse(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return decls(st, x.(ast.File))
}

// Funcs converts declarations to back end functions.
func Funcs(l []Func) []back.Func {
	r := make([]back.Func, len(l))

	for i, f := range l {
		r[i] = back.Func{
			Name:    f.Name,
			Escapes: f.Escapes,
			Body:    f.Build,
		}
	}

	return r
}

// Build makes the body IR in the function frame.
// Named temps and locals are created on first use.
func (f Func) Build(fr frame.Frame) (tree.Stm, error) {
	b := &builder{
		f:      fr,
		st:     f.st,
		temps:  map[string]temp.Temp{},
		locals: map[string]frame.Access{},
	}

	return b.stm(f.Body)
}

func decls(st *parse.State, file ast.File) (r []Func, err error) {
	seen := map[string]struct{}{}

	for _, x := range file.Forms {
		l := x.(ast.List)

		if l.Head() != "func" || len(l.Items) != 4 {
			return nil, newError(st, x, "(func NAME (ESCAPE...) BODY) expected")
		}

		name, err := atom(st, l.Items[1])
		if err != nil {
			return nil, errors.Wrap(err, "func name")
		}

		if _, ok := seen[name]; ok {
			return nil, newError(st, l.Items[1], "duplicate func %v", name)
		}

		seen[name] = struct{}{}

		esc, ok := l.Items[2].(ast.List)
		if !ok {
			return nil, newError(st, l.Items[2], "escapes list expected")
		}

		f := Func{
			Name:    temp.NamedLabel(name),
			Escapes: make([]bool, len(esc.Items)),
			Body:    l.Items[3],
			st:      st,
		}

		for i, e := range esc.Items {
			f.Escapes[i], err = boolean(st, e)
			if err != nil {
				return nil, errors.Wrap(err, "func %v: formal %d", name, i)
			}
		}

		r = append(r, f)
	}

	return r, nil
}

func (b *builder) stm(x ast.Node) (_ tree.Stm, err error) {
	l, ok := x.(ast.List)
	if !ok {
		return nil, b.errorf(x, "statement expected")
	}

	args := l.Args()

	switch h := l.Head(); h {
	case "move":
		if err = b.arity(l, 2); err != nil {
			return nil, err
		}

		dst, err := b.exp(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "move dst")
		}

		switch dst.(type) {
		case tree.Temp, tree.Mem:
		default:
			return nil, b.errorf(args[0], "move to %v", dst)
		}

		src, err := b.exp(args[1])
		if err != nil {
			return nil, errors.Wrap(err, "move src")
		}

		return tree.Move{Dst: dst, Src: src}, nil
	case "exp":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		e, err := b.exp(args[0])
		if err != nil {
			return nil, err
		}

		return tree.ExpStm{Exp: e}, nil
	case "label":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		lab, err := b.label(args[0])
		if err != nil {
			return nil, err
		}

		return tree.LabelStm{Label: lab}, nil
	case "seq":
		list := make([]tree.Stm, len(args))

		for i, a := range args {
			list[i], err = b.stm(a)
			if err != nil {
				return nil, errors.Wrap(err, "seq %d", i)
			}
		}

		return tree.Seqs(list...), nil
	case "jump":
		return b.jump(l)
	case "cjump":
		return b.cjump(l)
	default:
		return nil, b.errorf(x, "unknown statement %q", h)
	}
}

func (b *builder) jump(l ast.List) (_ tree.Stm, err error) {
	args := l.Args()

	if len(args) == 0 {
		return nil, b.errorf(l, "jump target expected")
	}

	if len(args) == 1 {
		lab, err := b.label(args[0])
		if err != nil {
			return nil, err
		}

		return tree.Jmp(lab), nil
	}

	target, err := b.exp(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "jump target")
	}

	labels := make([]temp.Label, len(args)-1)

	for i, a := range args[1:] {
		labels[i], err = b.label(a)
		if err != nil {
			return nil, err
		}
	}

	return tree.Jump{Target: target, Labels: labels}, nil
}

func (b *builder) cjump(l ast.List) (_ tree.Stm, err error) {
	if err = b.arity(l, 5); err != nil {
		return nil, err
	}

	args := l.Args()

	name, err := atom(b.st, args[0])
	if err != nil {
		return nil, err
	}

	op, ok := tree.ParseRelOp(name)
	if !ok {
		return nil, b.errorf(args[0], "unknown relation %q", name)
	}

	var x tree.CJump

	x.Op = op

	x.Left, err = b.exp(args[1])
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}

	x.Right, err = b.exp(args[2])
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}

	x.True, err = b.label(args[3])
	if err != nil {
		return nil, err
	}

	x.False, err = b.label(args[4])
	if err != nil {
		return nil, err
	}

	return x, nil
}

func (b *builder) exp(x ast.Node) (_ tree.Exp, err error) {
	switch x := x.(type) {
	case ast.Int:
		return b.constant(x)
	case ast.Atom:
		switch x.Text {
		case "fp":
			return b.f.FP(), nil
		case "rv":
			return b.f.RV(), nil
		}

		return nil, b.errorf(x, "unknown atom %q", x.Text)
	case ast.List:
	default:
		panic(x)
	}

	l := x.(ast.List)
	args := l.Args()

	switch h := l.Head(); h {
	case "const":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		v, ok := args[0].(ast.Int)
		if !ok {
			return nil, b.errorf(args[0], "int expected")
		}

		return b.constant(v)
	case "temp":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		name, err := atom(b.st, args[0])
		if err != nil {
			return nil, err
		}

		t, ok := b.temps[name]
		if !ok {
			t = temp.New()
			b.temps[name] = t
		}

		return tree.TempOf(t), nil
	case "formal":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		n, ok := args[0].(ast.Int)
		if !ok || n.Value < 0 || n.Value >= int64(len(b.f.Formals())) {
			return nil, b.errorf(args[0], "formal index out of range: have %d formals", len(b.f.Formals()))
		}

		return b.f.Formals()[n.Value].Exp(b.f.FP()), nil
	case "local":
		if err = b.arity(l, 2); err != nil {
			return nil, err
		}

		name, err := atom(b.st, args[0])
		if err != nil {
			return nil, err
		}

		esc, err := boolean(b.st, args[1])
		if err != nil {
			return nil, err
		}

		a, ok := b.locals[name]
		if !ok {
			a = b.f.AllocLocal(esc)
			b.locals[name] = a
		}

		return a.Exp(b.f.FP()), nil
	case "mem":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		addr, err := b.exp(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "mem")
		}

		return tree.Mem{Addr: addr}, nil
	case "name":
		if err = b.arity(l, 1); err != nil {
			return nil, err
		}

		lab, err := b.label(args[0])
		if err != nil {
			return nil, err
		}

		return tree.Name{Label: lab}, nil
	case "call":
		if len(args) == 0 {
			return nil, b.errorf(l, "call target expected")
		}

		var c tree.Call

		c.Func, err = b.exp(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "call target")
		}

		for i, a := range args[1:] {
			e, err := b.exp(a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}

			c.Args = append(c.Args, e)
		}

		return c, nil
	case "eseq":
		if err = b.arity(l, 2); err != nil {
			return nil, err
		}

		s, err := b.stm(args[0])
		if err != nil {
			return nil, errors.Wrap(err, "eseq stm")
		}

		e, err := b.exp(args[1])
		if err != nil {
			return nil, errors.Wrap(err, "eseq exp")
		}

		return tree.ESeq{Stm: s, Exp: e}, nil
	}

	op, ok := tree.ParseOp(l.Head())
	if !ok {
		return nil, b.errorf(l, "unknown expression %q", l.Head())
	}

	if err = b.arity(l, 2); err != nil {
		return nil, err
	}

	var bin tree.BinOp

	bin.Op = op

	bin.Left, err = b.exp(args[0])
	if err != nil {
		return nil, errors.Wrap(err, "%v left", op)
	}

	bin.Right, err = b.exp(args[1])
	if err != nil {
		return nil, errors.Wrap(err, "%v right", op)
	}

	return bin, nil
}

// constant accepts both signed and unsigned 32-bit values.
func (b *builder) constant(x ast.Int) (tree.Exp, error) {
	if x.Value < math.MinInt32 || x.Value > math.MaxUint32 {
		return nil, b.errorf(x, "constant overflows 32 bits: %d", x.Value)
	}

	return tree.Const(int32(x.Value)), nil
}

func (b *builder) label(x ast.Node) (temp.Label, error) {
	name, err := atom(b.st, x)
	if err != nil {
		return "", err
	}

	return temp.NamedLabel(name), nil
}

func (b *builder) arity(l ast.List, n int) error {
	if len(l.Args()) != n {
		return b.errorf(l, "%v takes %d args, got %d", l.Head(), n, len(l.Args()))
	}

	return nil
}

func (b *builder) errorf(x ast.Node, format string, args ...any) error {
	return newError(b.st, x, format, args...)
}

func atom(st *parse.State, x ast.Node) (string, error) {
	a, ok := x.(ast.Atom)
	if !ok {
		return "", newError(st, x, "name expected")
	}

	return a.Text, nil
}

func boolean(st *parse.State, x ast.Node) (bool, error) {
	if a, ok := x.(ast.Atom); ok {
		switch a.Text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}

	return false, newError(st, x, "true or false expected")
}

func newError(st *parse.State, x ast.Node, format string, args ...any) Error {
	pos := x.Span().Pos

	e := Error{
		Pos: pos,
		Msg: fmt.Sprintf(format, args...),
	}

	if st != nil {
		e.loc = st.Location(pos)
	}

	return e
}

func (e Error) Error() string {
	if e.loc == "" {
		return fmt.Sprintf("pos %d: %v", e.Pos, e.Msg)
	}

	return e.loc + ": " + e.Msg
}
