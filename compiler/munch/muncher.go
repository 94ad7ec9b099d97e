package munch

import (
	"tlog.app/go/tlog"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

type (
	// Frame is what rules need to know about the function being lowered.
	Frame interface {
		WordSize() int
		FP() tree.Exp
		RV() tree.Exp
	}

	// Muncher lowers one function body by maximal munch.
	// It is driven by target rule sets and never reorders what they emit.
	Muncher struct {
		frame Frame

		stm *StmRules
		exp *ExpRules

		code []assem.Instr
	}

	abort struct {
		err error
	}
)

func New(f Frame, stm *StmRules, exp *ExpRules) *Muncher {
	return &Muncher{
		frame: f,
		stm:   stm,
		exp:   exp,
	}
}

func (m *Muncher) Frame() Frame { return m.frame }

// Munch lowers s. On error the log is left as it was before the call.
func (m *Muncher) Munch(s tree.Stm) (err error) {
	defer m.recover(len(m.code), &err)

	m.Stm(s)

	return nil
}

// MunchExp lowers e and returns the register holding its value.
func (m *Muncher) MunchExp(e tree.Exp) (t temp.Temp, err error) {
	defer m.recover(len(m.code), &err)

	return m.Exp(e), nil
}

// Stm lowers s. For use by triggers.
func (m *Muncher) Stm(s tree.Stm) {
	r, env, err := m.stm.Select(s)
	if err != nil {
		m.Fail(err)
	}

	if tlog.If("munch") {
		tlog.Printw("munch stm", "rule", r.Name, "from", r.PC, "node", s.String())
	}

	r.Trigger(m, env)
}

// Exp lowers e and returns its register. For use by triggers.
func (m *Muncher) Exp(e tree.Exp) temp.Temp {
	r, env, err := m.exp.Select(e)
	if err != nil {
		m.Fail(err)
	}

	t := r.Trigger(m, env)

	if tlog.If("munch") {
		tlog.Printw("munch exp", "rule", r.Name, "from", r.PC, "node", e.String(), "reg", t)
	}

	return t
}

// Emit appends x to the instruction log.
func (m *Muncher) Emit(x ...assem.Instr) {
	m.code = append(m.code, x...)
}

// Fail aborts lowering of the whole function with err.
func (m *Muncher) Fail(err error) {
	panic(abort{err: err})
}

// Instrs returns the instructions emitted so far in order.
func (m *Muncher) Instrs() []assem.Instr {
	return m.code
}

func (m *Muncher) recover(mark int, errp *error) {
	p := recover()
	if p == nil {
		return
	}

	a, ok := p.(abort)
	if !ok {
		panic(p)
	}

	m.code = m.code[:mark]
	*errp = a.err
}
