// Package dpd implements the Disjoint-Paths Engine (BDA's alternative,
// vertex-disjoint-paths strategy): deciding whether n pairwise
// vertex-disjoint paths exist between two blocks of a CFG.
//
// The CFG is encoded as a node-split graph: every block b becomes two
// nodes, b.in and b.out, joined by a single capacity-1 split edge;
// every CFG edge a→b becomes a.out→b.in. Vertex-disjointness in the CFG
// is then exactly edge-disjointness in the node-split graph, which is
// decided by a bounded Ford-Fulkerson: n successful augmenting-path
// searches mean n disjoint paths exist.
package dpd

import (
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/internal/cfgutil"
)

type side bool

const (
	sideIn  side = false
	sideOut side = true
)

// node is one half of a block's node-split pair.
type node struct {
	block cfg.Block
	side  side
}

func inNode(b cfg.Block) node  { return node{b, sideIn} }
func outNode(b cfg.Block) node { return node{b, sideOut} }

// edge is a directed edge of the node-split graph.
type edge struct{ from, to node }

// Engine answers bounded vertex-disjoint-paths queries. It is stateless
// between calls and safe to share across functions and goroutines.
type Engine struct{}

// New returns a ready-to-use Engine.
func New() *Engine { return &Engine{} }

// DisjointPaths reports whether there are n pairwise vertex-disjoint
// paths from "from" to "to" in the CFG (endpoints excluded from the
// disjointness requirement, as usual).
func (e *Engine) DisjointPaths(from, to cfg.Block, n int) bool {
	return e.disjointPaths(outNode(from), []node{inNode(to)}, n, nil)
}

// InducesDivergentExit decides whether a divergent branch at from can
// cause lane-divergent control flow through exit: either from is the
// loop's latch and exit's unique predecessor is from, or there are two
// vertex-disjoint paths from "from" — one reaching exit, one returning
// to the loop header — within the loop.
func (e *Engine) InducesDivergentExit(from, exit cfg.Block, loop cfg.Loop) bool {
	if from == loop.Latch() {
		return cfgutil.UniquePredecessor(exit) == from
	}
	sinks := []node{outNode(exit), inNode(loop.Header())}
	return e.disjointPaths(outNode(from), sinks, 2, loop)
}

// disjointPaths runs n augmenting-path searches from source to any sink,
// bounded to blocks inside loop when loop is non-nil.
func (e *Engine) disjointPaths(source node, sinks []node, n int, loop cfg.Loop) bool {
	flow := map[edge]bool{}
	for i := 0; i < n; i++ {
		parent := map[node]node{}
		sink, ok := findPath(source, sinks, flow, parent, loop)
		if !ok {
			return false
		}
		injectFlow(source, sink, parent, flow)
	}
	return true
}

// findPath performs a deterministic breadth-first search from source,
// stopping at the first sink reached, and only traversing residual
// edges: forward split/CFG edges carrying no flow, and reverse edges
// carrying flow. Successor/predecessor expansion (but not the block's
// own split edge) is skipped once the search has stepped outside loop,
// mirroring the original Ford-Fulkerson-on-a-node-split-graph
// construction.
func findPath(source node, sinks []node, flow map[edge]bool, parent map[node]node, loop cfg.Loop) (node, bool) {
	visited := map[node]bool{source: true}
	queue := []node{source}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, s := range sinks {
			if cur == s {
				return s, true
			}
		}

		for _, next := range residualNeighbors(cur, flow, loop) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			queue = append(queue, next)
		}
	}
	return node{}, false
}

// residualNeighbors returns the nodes reachable from cur along residual
// edges of the node-split graph.
func residualNeighbors(cur node, flow map[edge]bool, loop cfg.Loop) []node {
	b := cur.block
	inLoop := loop == nil || loop.Contains(b)

	var out []node
	if cur.side == sideOut {
		if inLoop {
			for _, succ := range b.Succs() {
				next := inNode(succ)
				if !flow[edge{cur, next}] {
					out = append(out, next)
				}
			}
		}
		splitIn := inNode(b)
		if flow[edge{splitIn, cur}] {
			out = append(out, splitIn)
		}
	} else {
		splitOut := outNode(b)
		if !flow[edge{cur, splitOut}] {
			out = append(out, splitOut)
		}
		if inLoop {
			for _, pred := range b.Preds() {
				next := outNode(pred)
				if flow[edge{next, cur}] {
					out = append(out, next)
				}
			}
		}
	}
	return out
}

// injectFlow walks the discovered path from sink back to source,
// toggling each traversed edge's flow: a forward edge gains flow, a
// reverse (already-flowing) edge loses it.
func injectFlow(source, sink node, parent map[node]node, flow map[edge]bool) {
	cur := sink
	for cur != source {
		prev := parent[cur]
		if flow[edge{cur, prev}] {
			delete(flow, edge{cur, prev})
		} else {
			flow[edge{prev, cur}] = true
		}
		cur = prev
	}
}
