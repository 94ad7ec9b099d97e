package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/munch/compiler"
	"github.com/slowlang/munch/compiler/back"
	"github.com/slowlang/munch/compiler/irtext"
)

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print IR trees built for the target frames",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	lowerCmd := &cli.Command{
		Name:        "lower",
		Description: "select instructions and print the listing",
		Action:      lowerAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "munch",
		Description: "munch is a maximal munch instruction selector for IR text files",
		Flags: []*cli.Flag{
			cli.NewFlag("target", "x86", "target architecture"),
			cli.NewFlag("validate", false, "check every lowered body for uses of undefined temps"),
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			lowerCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func newCompiler(c *cli.Command) (*back.Compiler, error) {
	tlog.SetVerbosity(c.String("verbosity"))

	f, err := compiler.Target(c.String("target"))
	if err != nil {
		return nil, err
	}

	return &back.Compiler{
		Target:   f,
		Validate: c.Bool("validate"),
	}, nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	bc, err := newCompiler(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		fns, err := irtext.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		for _, fn := range fns {
			f := bc.Target.NewFrame(fn.Name, fn.Escapes)

			s, err := fn.Build(f)
			if err != nil {
				return errors.Wrap(err, "%v: func %v", a, fn.Name)
			}

			fmt.Printf("%v %v\n%v\n", fn.Name, fn.Escapes, s)
		}
	}

	return nil
}

func lowerAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	bc, err := newCompiler(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, bc, a)
		if err != nil {
			return errors.Wrap(err, "lower %v", a)
		}

		fmt.Printf("%s", obj)
	}

	return nil
}
