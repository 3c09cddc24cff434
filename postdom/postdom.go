// Package postdom computes post-dominator trees over the cfg interfaces.
// It reuses package domtree's dominator-tree algorithm on the reversed
// CFG, rooted at a synthetic virtual exit node that merges every block
// with no successors (returns, unreachables, and the like) — the
// standard construction for a single-rooted post-dominator tree.
package postdom

import (
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/domtree"
)

// virtualExit stands in for "the function has exited". Its reversed
// successors are the function's real exit blocks.
type virtualExit struct {
	exits []cfg.Block
}

func (v *virtualExit) Succs() []cfg.Block         { return nil }
func (v *virtualExit) Preds() []cfg.Block         { return nil }
func (v *virtualExit) Terminator() cfg.Terminator { return nil }
func (v *virtualExit) Instrs() []cfg.Instruction  { return nil }

// Tree is an immutable post-dominator tree.
type Tree struct {
	inner *domtree.Tree
	ve    *virtualExit
}

// Build computes the post-dominator tree of fn.
func Build(fn cfg.Function) *Tree {
	blocks := fn.Blocks()
	ve := &virtualExit{}
	for _, b := range blocks {
		if len(b.Succs()) == 0 {
			ve.exits = append(ve.exits, b)
		}
	}

	succs := func(b cfg.Block) []cfg.Block {
		if b == cfg.Block(ve) {
			return ve.exits
		}
		return b.Preds()
	}
	preds := func(b cfg.Block) []cfg.Block {
		if b == cfg.Block(ve) {
			return nil
		}
		if len(b.Succs()) == 0 {
			return []cfg.Block{ve}
		}
		return b.Succs()
	}

	inner := domtree.Build(ve, domtree.Edges{Succs: succs, Preds: preds})
	return &Tree{inner: inner, ve: ve}
}

// PostDominates reports whether a post-dominates b: every path from b to
// a function exit passes through a.
func (t *Tree) PostDominates(a, b cfg.Block) bool {
	return t.inner.Dominates(a, b)
}

// IPDom returns b's immediate post-dominator, or nil if no real block
// post-dominates b (every path from b reaches a different exit).
func (t *Tree) IPDom(b cfg.Block) cfg.Block {
	d := t.inner.IDom(b)
	if d == nil || d == cfg.Block(t.ve) {
		return nil
	}
	return d
}
