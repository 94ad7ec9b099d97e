package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/munch/compiler/ast"
)

func TestParseList(t *testing.T) {
	ctx := context.Background()

	x, err := Parse(ctx, []byte("(move (temp a) (+ 1 -2)) ; comment\n(label L1)"))
	require.NoError(t, err)

	f := x.(ast.File)
	require.Len(t, f.Forms, 2)

	l := f.Forms[0].(ast.List)
	assert.Equal(t, "move", l.Head())
	require.Len(t, l.Args(), 2)

	add := l.Args()[1].(ast.List)
	assert.Equal(t, "+", add.Head())
	assert.Equal(t, int64(1), add.Items[1].(ast.Int).Value)
	assert.Equal(t, int64(-2), add.Items[2].(ast.Int).Value)
	assert.Equal(t, ast.Base{Pos: 15, End: 23}, add.Base)

	assert.Equal(t, "L1", f.Forms[1].(ast.List).Items[1].(ast.Atom).Text)
}

func TestParseAtoms(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		text string
		want ast.Node
	}{
		{"0x10", ast.Int{Base: ast.Base{Pos: 1, End: 5}, Value: 16}},
		{"-", ast.Atom{Base: ast.Base{Pos: 1, End: 2}, Text: "-"}},
		{"a>>", ast.Atom{Base: ast.Base{Pos: 1, End: 4}, Text: "a>>"}},
		{"3x", ast.Atom{Base: ast.Base{Pos: 1, End: 3}, Text: "3x"}},
	} {
		x, err := Parse(ctx, []byte("("+tc.text+")"))
		require.NoError(t, err, "%s", tc.text)

		l := x.(ast.File).Forms[0].(ast.List)
		require.Len(t, l.Items, 1)

		assert.Equal(t, tc.want, l.Items[0], "%s", tc.text)
	}
}

func TestParseErrors(t *testing.T) {
	ctx := context.Background()

	for _, text := range []string{
		"(move",
		"(a))",
		"atom",
		"(99999999999999999999999)",
	} {
		_, err := Parse(ctx, []byte(text))
		assert.Error(t, err, "%s", text)
	}
}

func TestLocation(t *testing.T) {
	s := New()

	s.AddFile("a.ir", []byte("(a)\n(b"))

	_, err := s.Parse(context.Background())
	require.Error(t, err)

	assert.Equal(t, "a.ir:2:3", s.Location(6))
	assert.Equal(t, "a.ir:1:1", s.Location(0))
}

func TestComments(t *testing.T) {
	b := []byte("  ; one\n\t;two\n x")

	assert.Equal(t, len(b)-1, Blank.Skip(b, 0))
}
