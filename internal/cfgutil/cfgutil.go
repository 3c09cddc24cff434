// Package cfgutil provides small helpers shared by the analysis packages
// (dpd, bda, da, frontends). It operates purely on the cfg interfaces.
package cfgutil

import "github.com/cdl-saarland/rv-divergence/cfg"

// Walk visits b and every block reachable from it via Succs, in a
// deterministic order derived from each block's successor order. fn is
// called once per visited block; Walk stops descending from b when fn
// returns false, but still continues with other pending blocks.
func Walk(b cfg.Block, fn func(cfg.Block) bool) {
	seen := map[cfg.Block]bool{b: true}
	queue := []cfg.Block{b}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !fn(cur) {
			continue
		}
		for _, s := range cur.Succs() {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
}

// Reachable reports whether to is reachable from from by following
// successor edges (from included).
func Reachable(from, to cfg.Block) bool {
	if from == to {
		return true
	}
	found := false
	Walk(from, func(b cfg.Block) bool {
		if b == to {
			found = true
			return false
		}
		return true
	})
	return found
}

// BlockSet is an insertion-ordered set of blocks. Its zero value is an
// empty set ready to use.
type BlockSet struct {
	order []cfg.Block
	index map[cfg.Block]int
}

// Add inserts b if it isn't already present. It reports whether b was
// newly added.
func (s *BlockSet) Add(b cfg.Block) bool {
	if s.index == nil {
		s.index = map[cfg.Block]int{}
	}
	if _, ok := s.index[b]; ok {
		return false
	}
	s.index[b] = len(s.order)
	s.order = append(s.order, b)
	return true
}

// Has reports whether b is in the set.
func (s *BlockSet) Has(b cfg.Block) bool {
	if s.index == nil {
		return false
	}
	_, ok := s.index[b]
	return ok
}

// Slice returns the set's elements in insertion order. The returned slice
// must not be mutated by the caller.
func (s *BlockSet) Slice() []cfg.Block {
	return s.order
}

// Len returns the number of elements in the set.
func (s *BlockSet) Len() int {
	return len(s.order)
}

// UniquePredecessor returns b's sole predecessor, or nil if b has zero or
// more than one predecessor.
func UniquePredecessor(b cfg.Block) cfg.Block {
	preds := b.Preds()
	if len(preds) != 1 {
		return nil
	}
	return preds[0]
}

// Phis returns the leading phi instructions of b, in program order.
func Phis(b cfg.Block) []cfg.Phi {
	var phis []cfg.Phi
	for _, instr := range b.Instrs() {
		phi, ok := instr.(cfg.Phi)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}
