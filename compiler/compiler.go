package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/munch/compiler/back"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/frame/x86"
	"github.com/slowlang/munch/compiler/irtext"
)

var targets = map[string]frame.Frame{
	"x86": x86.Factory,
}

// Target returns the frame factory of the named target.
func Target(name string) (frame.Frame, error) {
	f, ok := targets[name]
	if !ok {
		return nil, errors.New("unknown target: %q", name)
	}

	return f, nil
}

func CompileFile(ctx context.Context, c *back.Compiler, name string) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, c, name, text)
}

// Compile lowers every function of the IR text.
func Compile(ctx context.Context, c *back.Compiler, name string, text []byte) (obj []byte, err error) {
	fns, err := irtext.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	obj, err = c.CompilePackage(ctx, nil, irtext.Funcs(fns))
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}
