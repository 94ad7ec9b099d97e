package frame

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/munch"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	// Access is where a formal or a local lives.
	Access interface {
		fmt.Stringer

		// Exp returns the IR for the storage given the frame pointer expression.
		Exp(fp tree.Exp) tree.Exp
	}

	// InFrame is a stack slot at a fixed offset from the frame pointer.
	InFrame struct {
		Offset int
	}

	// InReg is kept in its own register.
	InReg struct {
		Temp temp.Temp
	}

	// Frame describes the activation record of one function
	// and the calling convention of its target.
	//
	// A Frame value of a target with no name and no formals
	// serves as the factory for frames of real functions.
	Frame interface {
		munch.Frame

		Name() temp.Label
		Formals() []Access

		NewFrame(name temp.Label, escapes []bool) Frame
		AllocLocal(escapes bool) Access

		// NewMuncher returns the Muncher with the target rules lowering this frame.
		NewMuncher() *munch.Muncher

		// ProcEntryExit1 wraps the body with the IR of entry and exit.
		ProcEntryExit1(body tree.Stm) tree.Stm

		// ProcEntryExit2 post-processes selected instructions at the function exit.
		ProcEntryExit2(body []assem.Instr) []assem.Instr

		// ProcEntryExit3 completes the procedure once the frame size is known.
		ProcEntryExit3(body []assem.Instr) (*Proc, error)

		// OutArg is the storage of the i-th outgoing call argument.
		OutArg(i int) (Access, error)

		// Registers lists all physical registers of the target.
		Registers() ([]temp.Temp, error)

		// TempName names fixed registers. Virtual registers are printed as is.
		TempName(t temp.Temp) string
	}

	Proc struct {
		Frame Frame

		Prolog string
		Body   []assem.Instr
		Epilog string
	}
)

var ErrUnimplementedHook = errors.New("unimplemented target hook")

func (a InFrame) Exp(fp tree.Exp) tree.Exp {
	return tree.Mem{Addr: tree.Add(fp, tree.Const(a.Offset))}
}

func (a InReg) Exp(fp tree.Exp) tree.Exp {
	return tree.TempOf(a.Temp)
}

func (a InFrame) String() string { return fmt.Sprintf("frame@%d", a.Offset) }
func (a InReg) String() string   { return fmt.Sprintf("reg@%v", a.Temp) }

// Unimplemented returns ErrUnimplementedHook for the named hook of a target.
func Unimplemented(target, hook string) error {
	return errors.Wrap(ErrUnimplementedHook, "%v: %v", target, hook)
}
