package back

import (
	"context"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/format"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	Compiler struct {
		Target frame.Frame

		// Validate checks lowered bodies for uses of undefined temps.
		Validate bool
	}

	Func struct {
		Name    temp.Label
		Escapes []bool

		// Body builds the function IR in its frame.
		Body func(f frame.Frame) (tree.Stm, error)
	}
)

var ErrNoTarget = errors.New("no target")

func New(target frame.Frame) *Compiler {
	return &Compiler{Target: target}
}

// CompilePackage lowers functions and appends their listing to b in the given order.
func (c *Compiler) CompilePackage(ctx context.Context, b []byte, fns []Func) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile package", "funcs", len(fns))
	defer tr.Finish("err", &err)

	procs, err := c.LowerPackage(ctx, fns)
	if err != nil {
		return nil, err
	}

	for i, p := range procs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = format.Proc(b, p)
	}

	return b, nil
}

// LowerPackage lowers independent functions concurrently.
// Procs are returned in the order of fns.
func (c *Compiler) LowerPackage(ctx context.Context, fns []Func) (_ []*frame.Proc, err error) {
	seen := make(map[temp.Label]struct{}, len(fns))

	for _, fn := range fns {
		if _, ok := seen[fn.Name]; ok {
			return nil, errors.New("duplicate func %v", fn.Name)
		}

		seen[fn.Name] = struct{}{}
	}

	procs := make([]*frame.Proc, len(fns))

	g, ctx := errgroup.WithContext(ctx)

	for i, fn := range fns {
		i, fn := i, fn

		g.Go(func() (err error) {
			procs[i], err = c.Lower(ctx, fn)
			if err != nil {
				return errors.Wrap(err, "func %v", fn.Name)
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	return procs, nil
}

// Lower runs one function through the frame hooks and instruction selection.
func (c *Compiler) Lower(ctx context.Context, fn Func) (p *frame.Proc, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower func", "name", fn.Name, "escapes", fn.Escapes)
	defer tr.Finish("err", &err)

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	if c.Target == nil {
		return nil, ErrNoTarget
	}

	f := c.Target.NewFrame(fn.Name, fn.Escapes)

	var body tree.Stm

	if fn.Body != nil {
		body, err = fn.Body(f)
		if err != nil {
			return nil, errors.Wrap(err, "build body")
		}
	}

	stm := f.ProcEntryExit1(body)

	if tr.If("dump_tree") {
		tr.Printw("tree", "stm", stm.String())
	}

	m := f.NewMuncher()

	err = m.Munch(stm)
	if err != nil {
		return nil, errors.Wrap(err, "munch")
	}

	code := f.ProcEntryExit2(m.Instrs())

	if c.Validate {
		err = assem.Validate(code)
		if err != nil {
			return nil, errors.Wrap(err, "validate")
		}
	}

	p, err = f.ProcEntryExit3(code)
	if err != nil {
		return nil, errors.Wrap(err, "proc entry exit")
	}

	tr.V("lower").Printw("lowered", "instrs", len(code), "frame", f)

	return p, nil
}
