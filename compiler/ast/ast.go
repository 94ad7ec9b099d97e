package ast

type (
	Node interface {
		Span() Base
	}

	Base struct {
		Pos int
		End int
	}

	// Atom is a bare word: a keyword, a name, or an operator.
	Atom struct {
		Base `tlog:",embed"`

		Text string
	}

	Int struct {
		Base `tlog:",embed"`

		Value int64
	}

	List struct {
		Base `tlog:",embed"`

		Items []Node
	}

	// File is the sequence of top-level forms.
	File struct {
		Base `tlog:",embed"`

		Forms []Node
	}
)

func (b Base) Span() Base { return b }

// Head is the leading atom of a list or "".
func (l List) Head() string {
	if len(l.Items) == 0 {
		return ""
	}

	a, ok := l.Items[0].(Atom)
	if !ok {
		return ""
	}

	return a.Text
}

// Args are the items after the head.
func (l List) Args() []Node {
	if len(l.Items) == 0 {
		return nil
	}

	return l.Items[1:]
}
