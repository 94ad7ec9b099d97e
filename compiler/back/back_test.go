package back

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/frame/x86"
	"github.com/slowlang/munch/compiler/munch"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

func ret(v int32) func(f frame.Frame) (tree.Stm, error) {
	return func(f frame.Frame) (tree.Stm, error) {
		return tree.Move{Dst: f.RV(), Src: tree.Const(v)}, nil
	}
}

func TestSmoke(t *testing.T) {
	ctx := context.Background()

	c := New(x86.Factory)
	c.Validate = true

	obj, err := c.CompilePackage(ctx, nil, []Func{{Name: "main", Body: ret(0)}})
	require.NoError(t, err)

	s := string(obj)

	assert.Contains(t, s, "main:\n\tpush ebp\n\tmov ebp, esp\n")
	assert.Contains(t, s, "\tmov eax, 0\n")
	assert.Contains(t, s, "\tmov ebx, t")
	assert.Contains(t, s, "\tmov esp, ebp\n\tpop ebp\n\tret\n")

	t.Logf("result:\n%s", obj)
}

func TestLowerFormals(t *testing.T) {
	ctx := context.Background()

	c := New(x86.Factory)
	c.Validate = true

	p, err := c.Lower(ctx, Func{
		Name:    "add",
		Escapes: []bool{false, true},
		Body: func(f frame.Frame) (tree.Stm, error) {
			fp := f.FP()
			a, b := f.Formals()[0].Exp(fp), f.Formals()[1].Exp(fp)

			return tree.Move{Dst: f.RV(), Src: tree.Add(a, b)}, nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, temp.Label("add"), p.Frame.Name())
	assert.Equal(t, "add:\n\tpush ebp\n\tmov ebp, esp\n", p.Prolog)

	sink := p.Body[len(p.Body)-1].(assem.Oper)
	assert.Empty(t, sink.Asm)
}

func TestLowerPackageOrder(t *testing.T) {
	ctx := context.Background()

	c := New(x86.Factory)
	c.Validate = true

	var fns []Func

	for i := 0; i < 32; i++ {
		fns = append(fns, Func{
			Name:    temp.Label(fmt.Sprintf("f%d", i)),
			Escapes: []bool{i%2 == 0, true},
			Body:    ret(int32(i)),
		})
	}

	procs, err := c.LowerPackage(ctx, fns)
	require.NoError(t, err)
	require.Len(t, procs, len(fns))

	owner := map[temp.Temp]int{}

	for i, p := range procs {
		assert.Equal(t, fns[i].Name, p.Frame.Name())

		for _, x := range p.Body {
			for _, d := range x.Defs() {
				if d.IsFixed() {
					continue
				}

				if j, ok := owner[d]; ok {
					assert.Equal(t, i, j, "temp %v defined in %v and %v", d, fns[i].Name, fns[j].Name)
				}

				owner[d] = i
			}
		}
	}
}

func TestLowerErrors(t *testing.T) {
	ctx := context.Background()

	c := New(x86.Factory)

	_, err := c.Lower(ctx, Func{
		Name: "bad",
		Body: func(f frame.Frame) (tree.Stm, error) {
			return tree.Move{Dst: tree.Const(1), Src: tree.Const(2)}, nil
		},
	})
	assert.ErrorIs(t, err, munch.ErrUnmatchedShape)

	boom := errors.New("boom")

	_, err = c.LowerPackage(ctx, []Func{
		{Name: "ok", Body: ret(1)},
		{Name: "fail", Body: func(f frame.Frame) (tree.Stm, error) { return nil, boom }},
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "func fail")

	_, err = c.LowerPackage(ctx, []Func{{Name: "a"}, {Name: "a"}})
	assert.ErrorContains(t, err, "duplicate func a")

	_, err = (&Compiler{}).Lower(ctx, Func{Name: "x"})
	assert.ErrorIs(t, err, ErrNoTarget)

	cctx, cancel := context.WithCancel(ctx)
	cancel()

	_, err = c.Lower(cctx, Func{Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	undefined := Func{
		Name: "undef",
		Body: func(f frame.Frame) (tree.Stm, error) {
			return tree.Move{Dst: f.RV(), Src: tree.TempOf(temp.New())}, nil
		},
	}

	c := New(x86.Factory)

	_, err := c.Lower(ctx, undefined)
	assert.NoError(t, err)

	c.Validate = true

	_, err = c.Lower(ctx, undefined)
	assert.ErrorContains(t, err, "undefined register")
}

func TestEmptyBody(t *testing.T) {
	c := New(x86.Factory)
	c.Validate = true

	p, err := c.Lower(context.Background(), Func{Name: "nop"})
	require.NoError(t, err)

	// Callee-saved saves and restores and the exit sink.
	assert.Len(t, p.Body, 7)
}
