package domtree

import (
	"testing"

	"github.com/cdl-saarland/rv-divergence/internal/synthcfg"
)

// diamond builds A -> B, A -> C, B -> D, C -> D and returns the blocks.
func diamond() (fn *synthcfg.Func, a, b, c, d *synthcfg.Block) {
	fn = synthcfg.NewFunc("diamond")
	a = fn.NewBlock("A")
	b = fn.NewBlock("B")
	c = fn.NewBlock("C")
	d = fn.NewBlock("D")
	cond := synthcfg.NewConst("p")
	a.SetBranch("termA", cond, b, c)
	b.SetJump("jB", d)
	c.SetJump("jC", d)
	d.SetReturn("retD")
	return fn, a, b, c, d
}

func TestBuildFunctionDiamond(t *testing.T) {
	fn, a, b, c, d := diamond()
	tree := BuildFunction(fn)

	for _, x := range []*synthcfg.Block{a, b, c, d} {
		if !tree.Dominates(a, x) {
			t.Errorf("expected A to dominate %s", x)
		}
	}
	if tree.IDom(b) != a {
		t.Errorf("IDom(B) = %v, want A", tree.IDom(b))
	}
	if tree.IDom(c) != a {
		t.Errorf("IDom(C) = %v, want A", tree.IDom(c))
	}
	if tree.IDom(d) != a {
		t.Errorf("IDom(D) = %v, want A (join block's idom is the branch, not either arm)", tree.IDom(d))
	}
	if tree.Dominates(b, d) {
		t.Errorf("B must not dominate D: C reaches D without passing through B")
	}
	if tree.Dominates(c, d) {
		t.Errorf("C must not dominate D: B reaches D without passing through C")
	}
	if tree.IDom(a) != nil {
		t.Errorf("IDom(entry) = %v, want nil", tree.IDom(a))
	}
}

func TestBuildFunctionChain(t *testing.T) {
	fn := synthcfg.NewFunc("chain")
	a := fn.NewBlock("A")
	b := fn.NewBlock("B")
	c := fn.NewBlock("C")
	a.SetJump("jA", b)
	b.SetJump("jB", c)
	c.SetReturn("retC")

	tree := BuildFunction(fn)
	if tree.IDom(b) != a {
		t.Errorf("IDom(B) = %v, want A", tree.IDom(b))
	}
	if tree.IDom(c) != b {
		t.Errorf("IDom(C) = %v, want B", tree.IDom(c))
	}
	if !tree.Dominates(a, c) {
		t.Errorf("expected A to dominate C transitively")
	}
}

func TestChildren(t *testing.T) {
	fn, a, b, c, d := diamond()
	tree := BuildFunction(fn)
	kids := tree.Children(a)
	if len(kids) != 3 {
		t.Fatalf("Children(A) = %v, want 3 entries (B, C, D)", kids)
	}
	want := map[*synthcfg.Block]bool{b: true, c: true, d: true}
	for _, k := range kids {
		if !want[k.(*synthcfg.Block)] {
			t.Errorf("unexpected child %v", k)
		}
	}
}
