package da

import (
	"testing"

	"github.com/cdl-saarland/rv-divergence/bda"
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/domtree"
	"github.com/cdl-saarland/rv-divergence/internal/synthcfg"
	"github.com/cdl-saarland/rv-divergence/loopinfo"
	"github.com/cdl-saarland/rv-divergence/postdom"
)

func setup(fn *synthcfg.Func) (dt *domtree.Tree, pdt *postdom.Tree, li *loopinfo.Info, b *bda.Analysis) {
	dt = domtree.BuildFunction(fn)
	pdt = postdom.Build(fn)
	li = loopinfo.Build(fn, dt)
	b = bda.New(fn, dt, pdt, li)
	return
}

func TestDataDivergencePropagation(t *testing.T) {
	fn := synthcfg.NewFunc("data")
	tid := fn.NewParam("tid")
	entry := fn.NewBlock("Entry")
	x := entry.NewInstr("x", tid)
	y := entry.NewInstr("y", x)
	entry.SetReturn("ret")

	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(tid)
	a.Compute(true)

	if !a.IsDivergent(x) {
		t.Errorf("x depends directly on divergent tid and should be divergent")
	}
	if !a.IsDivergent(y) {
		t.Errorf("y depends transitively on divergent tid and should be divergent")
	}
}

func TestUniformOverridePrecedence(t *testing.T) {
	fn := synthcfg.NewFunc("uniformOverride")
	tid := fn.NewParam("tid")
	entry := fn.NewBlock("Entry")
	y := entry.NewInstr("y", tid)
	entry.SetReturn("ret")

	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.AddUniformOverride(y)
	a.MarkDivergent(tid)
	a.Compute(true)

	if a.IsDivergent(y) {
		t.Errorf("y was forced uniform and must never be reported divergent")
	}
	if !a.IsAlwaysUniform(y) {
		t.Errorf("IsAlwaysUniform(y) should report true")
	}
}

func TestMarkDivergentPanicsOnUniformValue(t *testing.T) {
	fn := synthcfg.NewFunc("panicCase")
	tid := fn.NewParam("tid")
	entry := fn.NewBlock("Entry")
	entry.SetReturn("ret")

	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.AddUniformOverride(tid)

	defer func() {
		if recover() == nil {
			t.Errorf("expected MarkDivergent to panic on a value already added via AddUniformOverride")
		}
	}()
	a.MarkDivergent(tid)
}

func TestAddUniformOverridePanicsOnDivergentValue(t *testing.T) {
	fn := synthcfg.NewFunc("panicCase2")
	tid := fn.NewParam("tid")
	entry := fn.NewBlock("Entry")
	entry.SetReturn("ret")

	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(tid)

	defer func() {
		if recover() == nil {
			t.Errorf("expected AddUniformOverride to panic on a value already marked divergent")
		}
	}()
	a.AddUniformOverride(tid)
}

// diamondWithPhi builds A -> B, A -> C, B -> D, C -> D, with a branch on
// cond at A and a two-edge phi at D.
func diamondWithPhi(constOrUndef bool) (fn *synthcfg.Func, cond *synthcfg.Instr, phi *synthcfg.Phi) {
	fn = synthcfg.NewFunc("diamond")
	a := fn.NewBlock("A")
	b := fn.NewBlock("B")
	c := fn.NewBlock("C")
	d := fn.NewBlock("D")
	cond = a.NewInstr("cond")
	a.SetBranch("termA", cond, b, c)
	valB := b.NewInstr("valB")
	b.SetJump("jB", d)
	valC := c.NewInstr("valC")
	c.SetJump("jC", d)
	phi = d.NewPhi("phiD", constOrUndef,
		cfg.PhiEdge{Pred: b, Value: valB},
		cfg.PhiEdge{Pred: c, Value: valC},
	)
	d.SetReturn("retD")
	return fn, cond, phi
}

func TestJoinDivergenceMarksNonConstantPhi(t *testing.T) {
	fn, cond, phi := diamondWithPhi(false)
	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(cond)
	a.Compute(true)

	if !a.IsDivergent(phi) {
		t.Errorf("a non-constant phi at the join of a divergent branch must become divergent")
	}
}

func TestConstantOrUndefPhiExemptFromJoinDivergence(t *testing.T) {
	fn, cond, phi := diamondWithPhi(true)
	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(cond)
	a.Compute(true)

	if a.IsDivergent(phi) {
		t.Errorf("a phi whose every incoming edge is constant/undef must stay uniform despite the join")
	}
}

// loopWithDivergentExit builds A -> H -> (cond q) -> B | Exit; B -> H, with
// an LCSSA phi at Exit for a value computed inside the loop.
func loopWithDivergentExit() (fn *synthcfg.Func, q *synthcfg.Instr, live *synthcfg.Instr, h *synthcfg.Block, exitPhi *synthcfg.Phi) {
	fn = synthcfg.NewFunc("loop")
	a := fn.NewBlock("A")
	h = fn.NewBlock("H")
	b := fn.NewBlock("B")
	exit := fn.NewBlock("Exit")

	a.SetJump("jA", h)
	live = h.NewInstr("live")
	q = h.NewInstr("q")
	h.SetBranch("termH", q, b, exit)
	b.SetJump("jB", h)
	exitPhi = exit.NewPhi("exitPhi", false, cfg.PhiEdge{Pred: h, Value: live})
	exit.SetReturn("retExit")
	return fn, q, live, h, exitPhi
}

func TestLoopDivergentExitLCSSA(t *testing.T) {
	fn, q, _, _, exitPhi := loopWithDivergentExit()
	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(q)
	a.Compute(true)

	if !a.IsDivergent(exitPhi) {
		t.Errorf("a divergent loop-exit branch must mark the LCSSA exit phi divergent")
	}
}

// loopWithNonLCSSAExit builds the same loop shape as loopWithDivergentExit,
// but the exit block consumes the loop-computed value directly instead of
// through a phi, as a non-LCSSA CFG would.
func loopWithNonLCSSAExit() (fn *synthcfg.Func, q *synthcfg.Instr, live, use *synthcfg.Instr) {
	fn = synthcfg.NewFunc("loopNonLCSSA")
	a := fn.NewBlock("A")
	h := fn.NewBlock("H")
	b := fn.NewBlock("B")
	exit := fn.NewBlock("Exit")

	a.SetJump("jA", h)
	live = h.NewInstr("live")
	q = h.NewInstr("q")
	h.SetBranch("termH", q, b, exit)
	b.SetJump("jB", h)
	use = exit.NewInstr("use", live)
	exit.SetReturn("retExit")
	return fn, q, live, use
}

func TestLoopDivergentExitTaintsLiveOuts(t *testing.T) {
	fn, q, _, use := loopWithNonLCSSAExit()
	dt, _, li, bd := setup(fn)
	a := New(fn, nil, dt, li, bd)
	a.MarkDivergent(q)
	a.Compute(false)

	if !a.IsDivergent(use) {
		t.Errorf("without LCSSA, a divergent loop-exit must taint the out-of-loop use of the in-loop live-out value")
	}
}
