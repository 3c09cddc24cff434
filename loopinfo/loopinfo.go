// Package loopinfo identifies natural loops in a reducible CFG, using the
// classic back-edge-plus-dominance construction (Aho, Sethi & Ullman):
// an edge b→h is a back edge when h dominates b, and the natural loop
// headed by h is the set of blocks that can reach a latch without
// leaving h's dominance region.
//
// Irreducible control flow (a "loop" entered through more than one
// dominance-unrelated block) is out of scope, per spec.md's non-goals;
// Build does not attempt to detect it.
package loopinfo

import "github.com/cdl-saarland/rv-divergence/cfg"

// Loop implements cfg.Loop.
type Loop struct {
	header, latch cfg.Block
	blocks        map[cfg.Block]bool
	exits         []cfg.Block
	parent        *Loop
}

func (l *Loop) Header() cfg.Block    { return l.header }
func (l *Loop) Latch() cfg.Block     { return l.latch }
func (l *Loop) Exits() []cfg.Block   { return l.exits }
func (l *Loop) Contains(b cfg.Block) bool {
	return l.blocks[b]
}
func (l *Loop) Parent() cfg.Loop {
	if l.parent == nil {
		return nil
	}
	return l.parent
}

// Info implements cfg.LoopInfo.
type Info struct {
	loopFor map[cfg.Block]*Loop
	loops   []*Loop
}

func (i *Info) LoopFor(b cfg.Block) cfg.Loop {
	l := i.loopFor[b]
	if l == nil {
		return nil
	}
	return l
}

// Loops returns every loop found, in the order their headers were
// discovered: the order in which each header's first back edge is met
// while scanning fn.Blocks() and each block's successors.
func (i *Info) Loops() []*Loop {
	return i.loops
}

// Build computes loop information for fn given its dominator tree.
// Precondition: dt was built from fn, and fn's control flow is reducible.
func Build(fn cfg.Function, dt cfg.DomTree) *Info {
	blocks := fn.Blocks()

	// 1. Find back edges, grouped by header, in block/successor order.
	latchesByHeader := map[cfg.Block][]cfg.Block{}
	var headerOrder []cfg.Block
	seenHeader := map[cfg.Block]bool{}
	for _, b := range blocks {
		for _, s := range b.Succs() {
			if dt.Dominates(s, b) {
				if !seenHeader[s] {
					seenHeader[s] = true
					headerOrder = append(headerOrder, s)
				}
				latchesByHeader[s] = append(latchesByHeader[s], b)
			}
		}
	}

	info := &Info{loopFor: map[cfg.Block]*Loop{}}
	for _, header := range headerOrder {
		latches := latchesByHeader[header]

		// 2. Natural loop body: backward reachability from every latch,
		// bounded by the header.
		body := map[cfg.Block]bool{header: true}
		var worklist []cfg.Block
		for _, latch := range latches {
			if !body[latch] {
				body[latch] = true
				worklist = append(worklist, latch)
			}
		}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, p := range b.Preds() {
				if !body[p] {
					body[p] = true
					worklist = append(worklist, p)
				}
			}
		}

		// 3. Distinguished latch: the first back-edge source found, in
		// block order. Multiple latches are still part of the loop body;
		// this only picks which one the Loop reports via Latch().
		latch := latches[0]

		// 4. Exits: successors of in-loop blocks that fall outside the
		// loop, discovered in block order, deduplicated.
		var exits []cfg.Block
		seenExit := map[cfg.Block]bool{}
		for _, b := range blocks {
			if !body[b] {
				continue
			}
			for _, s := range b.Succs() {
				if !body[s] && !seenExit[s] {
					seenExit[s] = true
					exits = append(exits, s)
				}
			}
		}

		l := &Loop{header: header, latch: latch, blocks: body, exits: exits}
		info.loops = append(info.loops, l)
	}

	// 5. Nesting: parent of loop L is the smallest other loop that
	// strictly contains L's header.
	for _, l := range info.loops {
		var parent *Loop
		for _, other := range info.loops {
			if other == l || !other.blocks[l.header] {
				continue
			}
			if parent == nil || len(other.blocks) < len(parent.blocks) {
				parent = other
			}
		}
		l.parent = parent
	}

	// 6. LoopFor: innermost (smallest) loop containing each block.
	for _, b := range blocks {
		var innermost *Loop
		for _, l := range info.loops {
			if !l.blocks[b] {
				continue
			}
			if innermost == nil || len(l.blocks) < len(innermost.blocks) {
				innermost = l
			}
		}
		if innermost != nil {
			info.loopFor[b] = innermost
		}
	}

	return info
}
