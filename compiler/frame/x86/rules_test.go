package x86

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/munch/compiler/assem"
	"github.com/slowlang/munch/compiler/munch"
	"github.com/slowlang/munch/compiler/temp"
	"github.com/slowlang/munch/compiler/tree"
)

func munchStm(t *testing.T, s tree.Stm) []assem.Instr {
	t.Helper()

	m := Factory.NewFrame("f", nil).NewMuncher()

	err := m.Munch(s)
	require.NoError(t, err, "%v", s)

	return m.Instrs()
}

func templates(l []assem.Instr) []string {
	r := make([]string, len(l))

	for i, x := range l {
		switch x := x.(type) {
		case assem.Oper:
			r[i] = x.Asm
		case assem.Move:
			r[i] = x.Asm
		case assem.Label:
			r[i] = x.Asm
		}
	}

	return r
}

func TestAddImmediateFirst(t *testing.T) {
	r := temp.New()

	m := Factory.NewFrame("f", nil).NewMuncher()

	res, err := m.MunchExp(tree.Add(tree.TempOf(r), tree.Const(5)))
	require.NoError(t, err)

	code := m.Instrs()
	assert.Equal(t, []string{"mov d0, s0", "add d0, 5"}, templates(code))
	assert.NotContains(t, templates(code), "add d0, s1")

	assert.Equal(t, r, code[0].Uses()[0])
	assert.Equal(t, res, code[1].Defs()[0])
}

func TestChainSound(t *testing.T) {
	dst := temp.New()

	code := munchStm(t, tree.Move{Dst: tree.TempOf(dst), Src: tree.Add(tree.Const(3), tree.Const(4))})
	require.NotEmpty(t, code)

	assert.Equal(t, []string{"mov d0, 3", "mov d0, s0", "add d0, 4", "mov d0, s0"}, templates(code))

	last, ok := code[len(code)-1].(assem.Move)
	require.True(t, ok)
	assert.Equal(t, dst, last.Dst)
	assert.Equal(t, code[len(code)-2].Defs()[0], last.Src)

	assert.NoError(t, assem.Validate(code))
}

func TestRulePriority(t *testing.T) {
	a, b := temp.New(), temp.New()
	ta, tb := tree.TempOf(a), tree.TempOf(b)
	fp := tree.TempOf(temp.Fixed(EBP))

	for _, tc := range []struct {
		name string
		stm  tree.Stm
		want []string
	}{
		{"store imm", tree.Move{Dst: tree.Mem{Addr: tree.Add(fp, tree.Const(-4))}, Src: tree.Const(7)},
			[]string{"mov dword [s0 - 4], 7"}},
		{"store reg", tree.Move{Dst: tree.Mem{Addr: tree.Add(fp, tree.Const(8))}, Src: tb},
			[]string{"mov [s0 + 8], s1"}},
		{"store const first", tree.Move{Dst: tree.Mem{Addr: tree.Add(tree.Const(8), ta)}, Src: tb},
			[]string{"mov [s0 + 8], s1"}},
		{"store minus", tree.Move{Dst: tree.Mem{Addr: tree.BinOp{Op: tree.Minus, Left: ta, Right: tree.Const(12)}}, Src: tb},
			[]string{"mov [s0 - 12], s1"}},
		{"store abs", tree.Move{Dst: tree.Mem{Addr: tree.Const(4096)}, Src: tb},
			[]string{"mov [4096], s0"}},
		{"store indirect imm", tree.Move{Dst: tree.Mem{Addr: ta}, Src: tree.Const(1)},
			[]string{"mov dword [s0], 1"}},
		{"store indirect", tree.Move{Dst: tree.Mem{Addr: ta}, Src: tb},
			[]string{"mov [s0], s1"}},
		{"load imm", tree.Move{Dst: ta, Src: tree.Const(-1)},
			[]string{"mov d0, -1"}},
		{"load disp", tree.Move{Dst: ta, Src: tree.Mem{Addr: tree.Add(fp, tree.Const(12))}},
			[]string{"mov d0, [s0 + 12]"}},
		{"load indirect", tree.Move{Dst: ta, Src: tree.Mem{Addr: tb}},
			[]string{"mov d0, [s0]", "mov d0, s0"}},
		{"move", tree.Move{Dst: ta, Src: tb},
			[]string{"mov d0, s0"}},
		{"mul imm", tree.ExpStm{Exp: tree.BinOp{Op: tree.Mul, Left: ta, Right: tree.Const(3)}},
			[]string{"imul d0, s0, 3"}},
		{"mul", tree.ExpStm{Exp: tree.BinOp{Op: tree.Mul, Left: ta, Right: tb}},
			[]string{"mov d0, s0", "imul d0, s1"}},
		{"div", tree.ExpStm{Exp: tree.BinOp{Op: tree.Div, Left: ta, Right: tb}},
			[]string{"mov d0, s0", "cdq", "idiv s0", "mov d0, s0"}},
		{"sub imm", tree.ExpStm{Exp: tree.BinOp{Op: tree.Minus, Left: ta, Right: tree.Const(1)}},
			[]string{"mov d0, s0", "sub d0, 1"}},
		{"sub const first", tree.ExpStm{Exp: tree.BinOp{Op: tree.Minus, Left: tree.Const(1), Right: ta}},
			[]string{"mov d0, 1", "mov d0, s0", "sub d0, s1"}},
		{"and imm first", tree.ExpStm{Exp: tree.BinOp{Op: tree.And, Left: tree.Const(255), Right: ta}},
			[]string{"mov d0, s0", "and d0, 255"}},
		{"shl imm", tree.ExpStm{Exp: tree.BinOp{Op: tree.LShift, Left: ta, Right: tree.Const(2)}},
			[]string{"mov d0, s0", "shl d0, 2"}},
		{"sar reg", tree.ExpStm{Exp: tree.BinOp{Op: tree.ARShift, Left: ta, Right: tb}},
			[]string{"mov d0, s0", "mov d0, s0", "sar d0, cl"}},
		{"name", tree.ExpStm{Exp: tree.Name{Label: "table"}},
			[]string{"mov d0, l0"}},
		{"label", tree.LabelStm{Label: "L9"},
			[]string{"L9:"}},
		{"jmp label", tree.Jmp("L9"),
			[]string{"jmp j0"}},
		{"jmp reg", tree.Jump{Target: ta, Labels: []temp.Label{"L1", "L2"}},
			[]string{"jmp s0"}},
		{"cjump imm", tree.CJump{Op: tree.Lt, Left: ta, Right: tree.Const(10), True: "T", False: "F"},
			[]string{"cmp s0, 10", "jl j0"}},
		{"cjump imm first", tree.CJump{Op: tree.Lt, Left: tree.Const(10), Right: ta, True: "T", False: "F"},
			[]string{"cmp s0, 10", "jg j0"}},
		{"cjump", tree.CJump{Op: tree.Uge, Left: ta, Right: tb, True: "T", False: "F"},
			[]string{"cmp s0, s1", "jae j0"}},
		{"eseq", tree.ExpStm{Exp: tree.ESeq{Stm: tree.LabelStm{Label: "L3"}, Exp: ta}},
			[]string{"L3:"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			code := munchStm(t, tc.stm)

			assert.Equal(t, tc.want, templates(code))
		})
	}
}

func TestCall(t *testing.T) {
	a := temp.New()

	code := munchStm(t, tree.Move{
		Dst: tree.TempOf(a),
		Src: tree.Call{
			Func: tree.Name{Label: "printf"},
			Args: []tree.Exp{tree.Name{Label: "fmt"}, tree.Const(42)},
		},
	})

	assert.Equal(t, []string{
		"mov d0, l0",
		"push dword 42",
		"push s0",
		"call l0",
		"add esp, 8",
		"mov d0, s0",
		"mov d0, s0",
	}, templates(code))

	call := code[3].(assem.Oper)
	assert.Equal(t, "call printf", call.Format(nil))
	assert.Equal(t, "mov "+code[0].Defs()[0].String()+", fmt", code[0].Format(nil))
	assert.ElementsMatch(t, []temp.Temp{temp.Fixed(EAX), temp.Fixed(ECX), temp.Fixed(EDX)}, call.Defs())

	res := code[5].(assem.Move)
	assert.Equal(t, temp.Fixed(EAX), res.Src)

	assert.NoError(t, assem.Validate(code))
}

func TestSymbolsLikePlaceholders(t *testing.T) {
	f := Factory.NewFrame("f", nil)

	for _, name := range []temp.Label{"d1", "s0", "j0", "l0"} {
		a := temp.New()

		code := munchStm(t, tree.Move{
			Dst: tree.TempOf(a),
			Src: tree.Call{Func: tree.Name{Label: name}, Args: []tree.Exp{tree.Name{Label: name}}},
		})

		var lines []string

		for _, x := range code {
			assert.NotPanics(t, func() { lines = append(lines, x.Format(f.TempName)) }, "%v", name)
		}

		require.Len(t, lines, 6, "%v", name)

		assert.Equal(t, "mov "+code[0].Defs()[0].String()+", "+string(name), lines[0])
		assert.Equal(t, "call "+string(name), lines[2])
		assert.Empty(t, code[2].Targets(), "%v", name)
	}
}

func TestCallIndirect(t *testing.T) {
	f := temp.New()

	code := munchStm(t, tree.ExpStm{Exp: tree.Call{Func: tree.TempOf(f)}})

	assert.Equal(t, []string{"call s0", "mov d0, s0"}, templates(code))
	assert.Equal(t, []temp.Temp{f}, code[0].Uses())
}

func TestUnmatched(t *testing.T) {
	m := Factory.NewFrame("f", nil).NewMuncher()

	err := m.Munch(tree.Move{Dst: tree.Const(1), Src: tree.Const(2)})
	assert.ErrorIs(t, err, munch.ErrUnmatchedShape)
	assert.Empty(t, m.Instrs())
}

func TestCoverage(t *testing.T) {
	a := tree.TempOf(temp.New())

	exps := []tree.Exp{
		tree.Const(1),
		a,
		tree.Name{Label: "x"},
		tree.Mem{Addr: a},
		tree.Call{Func: tree.Name{Label: "f"}, Args: []tree.Exp{a}},
		tree.ESeq{Stm: tree.ExpStm{Exp: a}, Exp: a},
	}

	for op := tree.Plus; op <= tree.Xor; op++ {
		exps = append(exps,
			tree.BinOp{Op: op, Left: a, Right: a},
			tree.BinOp{Op: op, Left: a, Right: tree.Const(2)},
			tree.BinOp{Op: op, Left: tree.Const(2), Right: a},
		)
	}

	var stms []tree.Stm

	for _, e := range exps {
		stms = append(stms,
			tree.ExpStm{Exp: e},
			tree.Move{Dst: a, Src: e},
			tree.Move{Dst: tree.Mem{Addr: e}, Src: e},
		)
	}

	for op := tree.Eq; op <= tree.Uge; op++ {
		stms = append(stms,
			tree.CJump{Op: op, Left: a, Right: a, True: "T", False: "F"},
			tree.CJump{Op: op, Left: tree.Const(0), Right: a, True: "T", False: "F"},
		)
	}

	stms = append(stms,
		tree.LabelStm{Label: "L"},
		tree.Jmp("L"),
		tree.Seqs(tree.LabelStm{Label: "A"}, tree.LabelStm{Label: "B"}),
	)

	_, exp := Rules()

	for _, s := range stms {
		code := munchStm(t, s)

		for _, x := range code {
			if o, ok := x.(assem.Oper); ok && o.Asm != "" {
				assert.NotPanics(t, func() { o.Format(nil) }, "%v", o.Asm)
			}
		}
	}

	assert.Greater(t, exp.Len(), 20)
}
