package postdom

import (
	"testing"

	"github.com/cdl-saarland/rv-divergence/internal/synthcfg"
)

func TestBuildDiamond(t *testing.T) {
	fn := synthcfg.NewFunc("diamond")
	a := fn.NewBlock("A")
	b := fn.NewBlock("B")
	c := fn.NewBlock("C")
	d := fn.NewBlock("D")
	cond := synthcfg.NewConst("p")
	a.SetBranch("termA", cond, b, c)
	b.SetJump("jB", d)
	c.SetJump("jC", d)
	d.SetReturn("retD")

	tree := Build(fn)

	if tree.IPDom(a) != d {
		t.Errorf("IPDom(A) = %v, want D", tree.IPDom(a))
	}
	if tree.IPDom(b) != d {
		t.Errorf("IPDom(B) = %v, want D", tree.IPDom(b))
	}
	if !tree.PostDominates(d, a) {
		t.Errorf("expected D to post-dominate A")
	}
	if tree.PostDominates(b, a) {
		t.Errorf("B must not post-dominate A: the C arm never reaches B")
	}
	if tree.IPDom(d) != nil {
		t.Errorf("IPDom(D) = %v, want nil: D is the function's only exit", tree.IPDom(d))
	}
}

func TestBuildDivergingReturns(t *testing.T) {
	fn := synthcfg.NewFunc("diverge")
	a := fn.NewBlock("A")
	b := fn.NewBlock("B")
	c := fn.NewBlock("C")
	cond := synthcfg.NewConst("p")
	a.SetBranch("termA", cond, b, c)
	b.SetReturn("retB")
	c.SetReturn("retC")

	tree := Build(fn)
	if tree.IPDom(a) != nil {
		t.Errorf("IPDom(A) = %v, want nil: B and C exit independently", tree.IPDom(a))
	}
}
