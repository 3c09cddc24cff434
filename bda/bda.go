// Package bda implements Branch-Dependence Analysis (BDA): for each
// terminator t, the set of join blocks where control paths started by t's
// successors reconverge, including temporal joins at loop exits. This is
// the foundation Divergence Analysis (package da) builds divergent-control
// propagation on top of.
//
// Two strategies compute the same result (§8's strategy-agreement
// property): ForwardPropagation, a single linear sweep tracking the
// "last definition" reaching each block, and DisjointPaths, which asks
// package dpd's vertex-disjoint-paths engine about each phi-bearing
// candidate block. ForwardPropagation is the default; it requires no
// max-flow search and is the source analysis's primary algorithm.
package bda

import (
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/dpd"
	"github.com/cdl-saarland/rv-divergence/internal/cfgutil"
)

// Strategy selects the join-block computation used by an Analysis.
type Strategy int

const (
	// ForwardPropagation tracks the last-reaching successor of t through
	// a single bounded worklist sweep. It is the default.
	ForwardPropagation Strategy = iota
	// DisjointPaths asks whether n=2 vertex-disjoint paths exist between
	// t's block and each phi-bearing candidate, via package dpd.
	DisjointPaths
)

// Analysis computes and memoizes join blocks for every terminator of one
// function. An Analysis borrows its CFG, dominator/post-dominator trees
// and loop info; it must not outlive them.
type Analysis struct {
	fn    cfg.Function
	dt    cfg.DomTree
	pdt   cfg.PostDomTree
	li    cfg.LoopInfo
	strat Strategy
	eng   *dpd.Engine

	cache map[cfg.Terminator][]cfg.Block
}

// Option configures an Analysis at construction time.
type Option func(*Analysis)

// WithStrategy selects the join-block computation strategy. The default is
// ForwardPropagation.
func WithStrategy(s Strategy) Option {
	return func(a *Analysis) { a.strat = s }
}

// New creates a BDA instance over fn, given its dominator tree, its
// post-dominator tree and its loop info.
func New(fn cfg.Function, dt cfg.DomTree, pdt cfg.PostDomTree, li cfg.LoopInfo, opts ...Option) *Analysis {
	a := &Analysis{
		fn:    fn,
		dt:    dt,
		pdt:   pdt,
		li:    li,
		strat: ForwardPropagation,
		eng:   dpd.New(),
		cache: map[cfg.Terminator][]cfg.Block{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// JoinBlocks returns the memoized set of join blocks for t, in a
// deterministic order. t must be a terminator of a block of the analyzed
// function. The returned slice must not be mutated by the caller.
func (a *Analysis) JoinBlocks(t cfg.Terminator) []cfg.Block {
	if len(t.Successors()) < 1 {
		return nil
	}
	if cached, ok := a.cache[t]; ok {
		return cached
	}
	var result []cfg.Block
	switch a.strat {
	case ForwardPropagation:
		result = a.forwardPropagation(t)
	case DisjointPaths:
		result = a.disjointPaths(t)
	default:
		panic("bda: unknown strategy")
	}
	a.cache[t] = result
	return result
}

// isDirectSucc reports whether s is one of P's immediate successors.
func isDirectSucc(p, s cfg.Block) bool {
	for _, succ := range p.Succs() {
		if succ == s {
			return true
		}
	}
	return false
}

// forwardPropagation implements the default strategy (spec.md §4.3.a): a
// single bounded sweep tracking, for every reachable block, the nearest
// successor of t the walk last arrived from.
func (a *Analysis) forwardPropagation(t cfg.Terminator) []cfg.Block {
	p := t.Block()
	lt := a.li.LoopFor(p)
	var header cfg.Block
	if lt != nil {
		header = lt.Header()
	}
	ipd := a.pdt.IPDom(p)

	defMap := map[cfg.Block]cfg.Block{}
	var exits cfgutil.BlockSet
	var result cfgutil.BlockSet
	var worklist []cfg.Block

	// 1. Bootstrap: every direct successor of P defines itself.
	for _, s := range t.Successors() {
		defMap[s] = s
		if lt != nil && !lt.Contains(s) {
			exits.Add(s)
			continue
		}
		worklist = append(worklist, s)
	}

	// 2. Propagate, stopping expansion at IPD and at the loop header.
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		d := defMap[b]

		if b == ipd || (header != nil && b == header) {
			continue
		}
		for _, s := range b.Succs() {
			if lt != nil && !lt.Contains(s) {
				defMap[s] = d
				exits.Add(s)
				continue
			}
			dPrime, ok := defMap[s]
			if !ok {
				defMap[s] = d
				worklist = append(worklist, s)
				continue
			}
			// The second disjunct is scoped to b == p. Without that scoping
			// it also fires on a back edge found deep inside one arm whose
			// target happens to equal one of p's other direct successors,
			// which is never a join: only that one arm ever reaches it.
			// The sweep never expands p itself (expansion stops at the
			// header of p's innermost loop, and p is either that header or
			// reachable again only through it), so in this scoped form the
			// disjunct adds no block: a direct successor that reaches
			// itself again by looping is not reported as a join here.
			joins := dPrime != d || (b == p && d == s && isDirectSucc(p, s))
			if joins {
				defMap[s] = s
				worklist = append(worklist, s)
				result.Add(s)
			}
		}
	}

	// 3. Loop exits converge at the header's definition, not IPD's, once
	// IPD lies inside the loop.
	if lt != nil && ipd != nil && lt.Contains(ipd) {
		defMap[header] = defMap[ipd]
	}

	// 4. Any exit reached by a definition other than the header's def
	// witnesses a temporal join.
	if lt != nil {
		headerDef := defMap[header]
		for _, e := range exits.Slice() {
			if defMap[e] != headerDef {
				result.Add(e)
			}
		}
	}

	return result.Slice()
}

// disjointPaths implements the alternative strategy (spec.md §4.3.b):
// every phi-bearing block reachable from t's successors is a candidate
// join block, confirmed via package dpd's vertex-disjoint-paths query;
// loop exits are confirmed via InducesDivergentExit.
//
// The source's domtree/post-domtree pruning ("skip b if IPD does not
// dominate post-dom node of b, or if domBound(b) does not dominate P") is
// a candidate-filtering optimization whose exact semantics spec.md leaves
// underspecified; it is omitted here in favor of enumerating every
// phi-bearing candidate outright, which preserves the required
// strategy-agreement result at the cost of extra dpd queries.
func (a *Analysis) disjointPaths(t cfg.Terminator) []cfg.Block {
	p := t.Block()
	var result cfgutil.BlockSet

	seen := map[cfg.Block]bool{}
	var candidates []cfg.Block
	for _, s := range t.Successors() {
		cfgutil.Walk(s, func(b cfg.Block) bool {
			if seen[b] {
				return true
			}
			seen[b] = true
			if len(cfgutil.Phis(b)) > 0 {
				candidates = append(candidates, b)
			}
			return true
		})
	}

	for _, b := range candidates {
		if a.eng.DisjointPaths(p, b, 2) {
			result.Add(b)
		}
	}

	if lt := a.li.LoopFor(p); lt != nil {
		for _, exit := range lt.Exits() {
			if a.eng.InducesDivergentExit(p, exit, lt) {
				result.Add(exit)
			}
		}
	}

	return result.Slice()
}
