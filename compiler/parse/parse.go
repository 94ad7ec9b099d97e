package parse

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/ast"
)

type (
	State struct {
		b []byte // all files concatenated

		Grammar Parser

		files []file
	}

	file struct {
		base int
		size int
		name string
	}

	Parser interface {
		Parse(ctx context.Context, b []byte, st int) (x ast.Node, i int, err error)
	}

	PartialReadError struct {
		End int
	}
)

func ParseFile(ctx context.Context, name string) (ast.Node, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	s := New()

	s.AddFile(name, data)

	return s.Parse(ctx)
}

func Parse(ctx context.Context, text []byte) (x ast.Node, err error) {
	s := New()

	s.AddFile("", text)

	return s.Parse(ctx)
}

func New() *State {
	return &State{
		Grammar: File{},
	}
}

func (s *State) Parse(ctx context.Context) (x ast.Node, err error) {
	x, i, err := s.Grammar.Parse(ctx, s.b, 0)
	if err != nil {
		return nil, errors.Wrap(err, "%v", s.Location(i))
	}

	i = Blank.Skip(s.b, i)

	if i != len(s.b) {
		return x, errors.Wrap(PartialReadError{End: i}, "%v", s.Location(i))
	}

	return x, nil
}

func (s *State) AddFile(name string, text []byte) {
	f := file{
		name: name,
		base: len(s.b),
		size: len(text),
	}

	s.b = append(s.b, text...)

	s.files = append(s.files, f)
}

func (s *State) Text(pos, end int) []byte {
	return s.b[pos:end]
}

// Location returns name:line:col of the position.
func (s *State) Location(pos int) string {
	for _, f := range s.files {
		if pos < f.base || pos > f.base+f.size {
			continue
		}

		text := s.b[f.base:pos]

		line := 1 + bytes.Count(text, []byte{'\n'})
		col := 1 + len(text)

		if nl := bytes.LastIndexByte(text, '\n'); nl >= 0 {
			col = len(text) - nl
		}

		return fmt.Sprintf("%v:%d:%d", f.name, line, col)
	}

	return fmt.Sprintf("pos %d", pos)
}

func (e PartialReadError) Error() string {
	return fmt.Sprintf("partial read: unexpected text at %d", e.End)
}
