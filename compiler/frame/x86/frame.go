package x86

import (
	"fmt"
	"strings"

	"tlog.app/go/tlog"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/frame"
	"github.com/slowlang/munch/compiler/munch"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	// Frame is a 32-bit x86 cdecl activation record.
	//
	//	ebp+12  second incoming argument
	//	ebp+8   first incoming argument
	//	ebp+4   return address
	//	ebp     saved ebp
	//	ebp-4   first local
	Frame struct {
		name    temp.Label
		formals []frame.Access

		locals int

		factory bool
	}
)

const (
	WordSize          = 4
	FirstFormalOffset = 8
	FormalIncrement   = WordSize
)

const (
	EAX temp.Reg = iota + 1
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

var regNames = [...]string{
	EAX: "eax",
	ECX: "ecx",
	EDX: "edx",
	EBX: "ebx",
	ESP: "esp",
	EBP: "ebp",
	ESI: "esi",
	EDI: "edi",
}

var (
	fp = temp.Fixed(EBP)
	sp = temp.Fixed(ESP)
	rv = temp.Fixed(EAX)

	calleeSaved = []temp.Temp{temp.Fixed(EBX), temp.Fixed(ESI), temp.Fixed(EDI)}
	callerSaved = []temp.Temp{temp.Fixed(EAX), temp.Fixed(ECX), temp.Fixed(EDX)}
)

// Factory is the frame to create function frames from.
// It is shared and has no storage of its own.
var Factory frame.Frame = &Frame{factory: true}

func (f *Frame) NewFrame(name temp.Label, escapes []bool) frame.Frame {
	off := FirstFormalOffset

	formals := make([]frame.Access, len(escapes))

	for i, esc := range escapes {
		if esc {
			formals[i] = frame.InFrame{Offset: off}
			off += FormalIncrement
		} else {
			formals[i] = frame.InReg{Temp: temp.New()}
		}
	}

	tlog.V("frame").Printw("new frame", "name", name, "escapes", escapes, "formals", accessNames(formals))

	return &Frame{
		name:    name,
		formals: formals,
	}
}

// AllocLocal panics on Factory.
func (f *Frame) AllocLocal(escapes bool) frame.Access {
	if f.factory {
		panic("x86: AllocLocal on the frame factory, use NewFrame")
	}

	var a frame.Access

	if escapes {
		f.locals++
		a = frame.InFrame{Offset: -f.locals * WordSize}
	} else {
		a = frame.InReg{Temp: temp.New()}
	}

	tlog.V("frame").Printw("alloc local", "name", f.name, "escapes", escapes, "access", a.String())

	return a
}

func (f *Frame) Name() temp.Label         { return f.name }
func (f *Frame) Formals() []frame.Access { return f.formals }

// Locals is the number of stack slots allocated for locals.
func (f *Frame) Locals() int { return f.locals }

func (f *Frame) FP() tree.Exp  { return tree.TempOf(fp) }
func (f *Frame) RV() tree.Exp  { return tree.TempOf(rv) }
func (f *Frame) WordSize() int { return WordSize }

func (f *Frame) NewMuncher() *munch.Muncher {
	stm, exp := Rules()

	return munch.New(f, stm, exp)
}

// ProcEntryExit1 moves incoming arguments to where the formals live
// and keeps callee-saved registers in fresh temps across the body.
func (f *Frame) ProcEntryExit1(body tree.Stm) tree.Stm {
	fpx := f.FP()

	var entry, exit []tree.Stm

	// Arguments are pushed by the caller for every formal.
	// Escaping formals are packed to lower slots, which are either
	// their own or already read.
	for i, a := range f.formals {
		in := frame.InFrame{Offset: FirstFormalOffset + i*FormalIncrement}

		if a == frame.Access(in) {
			continue
		}

		entry = append(entry, tree.Move{Dst: a.Exp(fpx), Src: in.Exp(fpx)})
	}

	for _, r := range calleeSaved {
		t := temp.New()

		entry = append(entry, tree.Move{Dst: tree.TempOf(t), Src: tree.TempOf(r)})
		exit = append(exit, tree.Move{Dst: tree.TempOf(r), Src: tree.TempOf(t)})
	}

	l := append(entry, body)
	l = append(l, exit...)

	return tree.Seqs(l...)
}

// ProcEntryExit2 marks registers live at the function exit.
func (f *Frame) ProcEntryExit2(body []assem.Instr) []assem.Instr {
	live := append([]temp.Temp{rv, sp, fp}, calleeSaved...)

	return append(body[:len(body):len(body)], assem.Oper{Asm: "", Src: live})
}

func (f *Frame) ProcEntryExit3(body []assem.Instr) (*frame.Proc, error) {
	var pro strings.Builder

	fmt.Fprintf(&pro, "%v:\n", f.name)
	pro.WriteString("\tpush ebp\n")
	pro.WriteString("\tmov ebp, esp\n")

	if size := f.locals * WordSize; size != 0 {
		fmt.Fprintf(&pro, "\tsub esp, %d\n", size)
	}

	return &frame.Proc{
		Frame:  f,
		Prolog: pro.String(),
		Body:   body,
		Epilog: "\tmov esp, ebp\n\tpop ebp\n\tret\n",
	}, nil
}

// OutArg is not used: arguments are pushed.
func (f *Frame) OutArg(i int) (frame.Access, error) {
	return nil, frame.Unimplemented("x86", "OutArg")
}

func (f *Frame) Registers() ([]temp.Temp, error) {
	r := make([]temp.Temp, 0, len(regNames)-1)

	for reg := EAX; reg <= EDI; reg++ {
		r = append(r, temp.Fixed(reg))
	}

	return r, nil
}

func (f *Frame) TempName(t temp.Temp) string {
	if r, ok := t.Reg(); ok && int(r) < len(regNames) && regNames[r] != "" {
		return regNames[r]
	}

	return t.String()
}

func (f *Frame) String() string {
	return fmt.Sprintf("x86 frame %v formals %v locals %d", f.name, accessNames(f.formals), f.locals)
}

func accessNames(l []frame.Access) []string {
	r := make([]string, len(l))

	for i, a := range l {
		r[i] = a.String()
	}

	return r
}
