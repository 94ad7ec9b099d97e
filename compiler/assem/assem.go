package assem

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/munch/compiler/temp"
)

type (
	// Instr is a selected machine instruction.
	// Asm templates refer to registers via placeholders:
	// s<i> is the i-th use, d<i> is the i-th def, j<i> is the i-th jump target,
	// l<i> is the i-th symbol. Symbol names never go into templates as text.
	Instr interface {
		Uses() []temp.Temp
		Defs() []temp.Temp
		Targets() []temp.Label

		Format(names func(temp.Temp) string) string
	}

	Oper struct {
		Asm   string
		Dst   []temp.Temp
		Src   []temp.Temp
		Jumps []temp.Label

		// Syms are referenced labels which are not control flow targets.
		Syms []temp.Label
	}

	// Move copies one register to another.
	// Register allocator may coalesce Dst and Src.
	Move struct {
		Asm string
		Dst temp.Temp
		Src temp.Temp
	}

	Label struct {
		Asm   string
		Label temp.Label
	}
)

func (x Oper) Uses() []temp.Temp     { return x.Src }
func (x Oper) Defs() []temp.Temp     { return x.Dst }
func (x Oper) Targets() []temp.Label { return x.Jumps }

func (x Move) Uses() []temp.Temp     { return []temp.Temp{x.Src} }
func (x Move) Defs() []temp.Temp     { return []temp.Temp{x.Dst} }
func (x Move) Targets() []temp.Label { return nil }

func (x Label) Uses() []temp.Temp     { return nil }
func (x Label) Defs() []temp.Temp     { return nil }
func (x Label) Targets() []temp.Label { return nil }

func (x Oper) Format(names func(temp.Temp) string) string {
	return Expand(x, names)
}

func (x Move) Format(names func(temp.Temp) string) string {
	return Expand(Oper{Asm: x.Asm, Dst: []temp.Temp{x.Dst}, Src: []temp.Temp{x.Src}}, names)
}

func (x Label) Format(names func(temp.Temp) string) string {
	return x.Asm
}

func (x Oper) String() string  { return x.Format(nil) }
func (x Move) String() string  { return x.Format(nil) }
func (x Label) String() string { return x.Asm }

func (x Oper) TlogAppend(b []byte) []byte  { return appendString(b, x.String()) }
func (x Move) TlogAppend(b []byte) []byte  { return appendString(b, x.String()) }
func (x Label) TlogAppend(b []byte) []byte { return appendString(b, x.Asm) }

// Expand substitutes placeholders in x.Asm.
// Placeholders are recognized only at the start of a word.
// names may be nil, Temp.String is used then.
func Expand(x Oper, names func(temp.Temp) string) string {
	asm := x.Asm

	if names == nil {
		names = temp.Temp.String
	}

	b := make([]byte, 0, len(asm)+16)

	for i := 0; i < len(asm); {
		c := asm[i]

		if (c == 's' || c == 'd' || c == 'j' || c == 'l') && (i == 0 || !isWord(asm[i-1])) {
			e := i + 1
			for e < len(asm) && asm[e] >= '0' && asm[e] <= '9' {
				e++
			}

			if e > i+1 && (e == len(asm) || !isWord(asm[e])) {
				n, _ := strconv.Atoi(asm[i+1 : e])

				switch {
				case c == 's' && n < len(x.Src):
					b = append(b, names(x.Src[n])...)
				case c == 'd' && n < len(x.Dst):
					b = append(b, names(x.Dst[n])...)
				case c == 'j' && n < len(x.Jumps):
					b = append(b, string(x.Jumps[n])...)
				case c == 'l' && n < len(x.Syms):
					b = append(b, string(x.Syms[n])...)
				default:
					panic("placeholder out of range: " + asm[i:e] + " in " + strconv.Quote(asm))
				}

				i = e

				continue
			}
		}

		b = append(b, c)
		i++
	}

	return string(b)
}

func isWord(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '.'
}

func appendString(b []byte, s string) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, s)
}
