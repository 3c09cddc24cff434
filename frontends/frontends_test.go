package frontends

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

// loopWithEarlyExit builds Entry -> H -> (cond q) -> Mid | Early, with
// Mid -> (cond r) -> B | Late, B -> H, Late and Early both returning. H's
// header phi combines the entry value and the value carried around the
// back edge; H and Mid are both exiting blocks of the loop (leaving it for
// Early and Late), exercising exitingBlocks beyond the latch itself.
func loopWithEarlyExit() (fn *synthcfg.Func, q, r *synthcfg.Const, headerPhi *synthcfg.Phi, h, mid, b cfg.Block) {
	fn = synthcfg.NewFunc("loopEarlyExit")
	entry := fn.NewBlock("Entry")
	hb := fn.NewBlock("H")
	midb := fn.NewBlock("Mid")
	early := fn.NewBlock("Early")
	bb := fn.NewBlock("B")
	late := fn.NewBlock("Late")
	q = synthcfg.NewConst("q")
	r = synthcfg.NewConst("r")

	init := entry.NewInstr("init")
	entry.SetJump("jEntry", hb)
	stepped := bb.NewInstr("step")
	hb.SetBranch("termH", q, midb, early)
	midb.SetBranch("termMid", r, bb, late)
	bb.SetJump("jB", hb)
	early.SetReturn("retEarly")
	late.SetReturn("retLate")

	headerPhi = hb.NewPhi("headerPhi", false,
		cfg.PhiEdge{Pred: entry, Value: init},
		cfg.PhiEdge{Pred: bb, Value: stepped},
	)

	return fn, q, r, headerPhi, hb, midb, bb
}

func TestLoopDivergenceAnalysisSeedsHeaderPhiAndUniformOverridesExit(t *testing.T) {
	fn, q, _, headerPhi, h, _, _ := loopWithEarlyExit()
	dt, _, li, bd := setup(fn)
	loop := li.LoopFor(h)
	if loop == nil {
		t.Fatalf("expected H to head a natural loop")
	}

	l := NewLoopDivergenceAnalysis(fn, dt, li, bd, loop)

	if !l.IsDivergent(headerPhi) {
		t.Errorf("loop header phi must be seeded divergent by LoopDivergenceAnalysis")
	}
	if !l.da.IsAlwaysUniform(q) {
		t.Errorf("H's exiting condition must be forced uniform by LoopDivergenceAnalysis")
	}
}

// exitsAmong reports whether want appears among loop's exiting blocks.
func exitsAmong(t *testing.T, loop cfg.Loop, want cfg.Block) bool {
	t.Helper()
	for _, b := range exitingBlocks(loop) {
		if b == want {
			return true
		}
	}
	return false
}

func TestExitingBlocksFindsEveryExitingBlockNotJustTheLatch(t *testing.T) {
	fn, _, _, _, h, mid, b := loopWithEarlyExit()
	_, _, li, _ := setup(fn)
	loop := li.LoopFor(h)
	if loop == nil {
		t.Fatalf("expected H to head a natural loop")
	}

	if !exitsAmong(t, loop, h) {
		t.Errorf("H exits the loop via its Early arm and must be reported exiting")
	}
	if !exitsAmong(t, loop, mid) {
		t.Errorf("Mid exits the loop via its Late arm and must be reported exiting")
	}
	if exitsAmong(t, loop, b) {
		t.Errorf("B only ever jumps back to H and must not be reported exiting")
	}
}

// oracle is a trivial cfg.TargetOracle seeded from explicit value sets.
type oracle struct {
	divergent map[cfg.Value]bool
	uniform   map[cfg.Value]bool
}

func (o *oracle) IsSourceOfDivergence(v cfg.Value) bool { return o.divergent[v] }
func (o *oracle) IsAlwaysUniform(v cfg.Value) bool      { return o.uniform[v] }

func TestGPUDivergenceAnalysisPropagatesOracleSeedFromArgumentToPhi(t *testing.T) {
	fn := synthcfg.NewFunc("gpuKernel")
	tid := fn.NewParam("tid")
	a := fn.NewBlock("A")
	b := fn.NewBlock("B")
	c := fn.NewBlock("C")
	d := fn.NewBlock("D")
	cond := a.NewInstr("cond", tid)
	a.SetBranch("termA", cond, b, c)
	valB := b.NewInstr("valB", tid)
	b.SetJump("jB", d)
	valC := c.NewInstr("valC")
	c.SetJump("jC", d)
	phi := d.NewPhi("phiD", false,
		cfg.PhiEdge{Pred: b, Value: valB},
		cfg.PhiEdge{Pred: c, Value: valC},
	)
	d.SetReturn("retD")

	dt, pdt, li, _ := setup(fn)
	o := &oracle{
		divergent: map[cfg.Value]bool{tid: true},
		uniform:   map[cfg.Value]bool{},
	}

	g := NewGPUDivergenceAnalysis(fn, dt, pdt, li, o)

	if !g.IsDivergent(valB) {
		t.Errorf("valB depends directly on the oracle-seeded divergent argument and must be divergent")
	}
	if !g.IsDivergent(phi) {
		t.Errorf("phi must become divergent once the branch feeding it depends on tid")
	}
}

func TestGPUDivergenceAnalysisHonorsUniformOverride(t *testing.T) {
	fn := synthcfg.NewFunc("gpuUniform")
	tid := fn.NewParam("tid")
	entry := fn.NewBlock("Entry")
	y := entry.NewInstr("y", tid)
	entry.SetReturn("ret")

	dt, pdt, li, _ := setup(fn)
	o := &oracle{
		divergent: map[cfg.Value]bool{tid: true},
		uniform:   map[cfg.Value]bool{y: true},
	}

	g := NewGPUDivergenceAnalysis(fn, dt, pdt, li, o)

	if g.IsDivergent(y) {
		t.Errorf("y was forced uniform by the oracle and must never be reported divergent")
	}
}
