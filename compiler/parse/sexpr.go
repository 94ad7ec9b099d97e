package parse

import (
	"bytes"
	"context"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/ast"
)

type (
	Const []byte

	Atom struct{}

	Int struct{}

	// List is a parenthesized sequence of expressions.
	List struct{}

	Expr struct{}

	File struct{}

	items struct{}
)

func (p Const) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	if bytes.HasPrefix(b[st:], p) {
		return ast.Atom{Base: ast.Base{Pos: st, End: st + len(p)}, Text: string(p)}, st + len(p), nil
	}

	return nil, st, errors.New("%q expected", []byte(p))
}

func (p Atom) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = word(b, st)
	if i == st {
		return nil, st, errors.New("Atom expected")
	}

	return ast.Atom{
		Base: ast.Base{Pos: st, End: i},
		Text: string(b[st:i]),
	}, i, nil
}

func (p Int) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	i = st

	if i < len(b) && b[i] == '-' {
		i++
	}

	if i == len(b) || b[i] < '0' || b[i] > '9' {
		return nil, st, errors.New("Int expected")
	}

	i = word(b, st)

	v, err := strconv.ParseInt(string(b[st:i]), 0, 64)
	if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
		return nil, i, errors.Wrap(err, "int")
	}
	if err != nil {
		return nil, st, errors.New("Int expected")
	}

	return ast.Int{
		Base:  ast.Base{Pos: st, End: i},
		Value: v,
	}, i, nil
}

func (p List) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	r := Context{
		Pre:  Const("("),
		Of:   items{},
		Post: Spaced(Const(")"), Blank),
	}

	x, i, err = r.Parse(ctx, b, st)
	if err != nil {
		return nil, i, err
	}

	l := x.(ast.List)
	l.Base = ast.Base{Pos: st, End: i}

	return l, i, nil
}

func (p items) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	var l ast.List

	i = st

	for {
		i = Blank.Skip(b, i)

		if i == len(b) {
			return nil, i, errors.New("unclosed list")
		}

		if b[i] == ')' {
			return l, i, nil
		}

		x, i, err = Expr{}.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "item %d", len(l.Items))
		}

		l.Items = append(l.Items, x)
	}
}

func (p Expr) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	return AnyOf{List{}, Int{}, Atom{}}.Parse(ctx, b, st)
}

func (p File) Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error) {
	f := ast.File{Base: ast.Base{Pos: st}}

	i = Blank.Skip(b, st)

	for i < len(b) {
		x, i, err = List{}.Parse(ctx, b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "form %d", len(f.Forms))
		}

		f.Forms = append(f.Forms, x)

		i = Blank.Skip(b, i)
	}

	f.End = i

	return f, i, nil
}

func word(b []byte, st int) (i int) {
	i = st

	for i < len(b) && b[i] > ' ' && b[i] != 0x7f && b[i] != '(' && b[i] != ')' && b[i] != ';' {
		i++
	}

	return
}
