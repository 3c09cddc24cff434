// Package domtree computes dominator trees over the cfg interfaces, using
// the iterative reverse-postorder "intersect" algorithm of Cooper, Harvey
// and Kennedy. It is deliberately parameterized over the direction of
// traversal (Edges) so that the exact same implementation can compute a
// forward dominator tree here, and a post-dominator tree in package
// postdom by swapping Succs and Preds and rooting at a virtual exit node.
package domtree

import "github.com/cdl-saarland/rv-divergence/cfg"

// Edges supplies the successor/predecessor functions the algorithm walks.
// For a forward dominator tree these are simply a Block's own Succs and
// Preds; package postdom supplies the reversed pair plus a virtual root.
type Edges struct {
	Succs func(cfg.Block) []cfg.Block
	Preds func(cfg.Block) []cfg.Block
}

// Tree is an immutable dominator tree.
type Tree struct {
	root     cfg.Block
	idom     map[cfg.Block]cfg.Block
	children map[cfg.Block][]cfg.Block
	pre      map[cfg.Block]int32
	post     map[cfg.Block]int32
}

// BuildFunction computes the forward dominator tree of fn.
// Precondition: every block in fn is reachable from fn.Entry().
func BuildFunction(fn cfg.Function) *Tree {
	return Build(fn.Entry(), Edges{Succs: cfg.Block.Succs, Preds: cfg.Block.Preds})
}

// Build computes the dominator tree rooted at root, reachable via
// e.Succs. Precondition: every block of interest is reachable from root.
func Build(root cfg.Block, e Edges) *Tree {
	rpo, order := reversePostorder(root, e.Succs)

	idom := map[cfg.Block]cfg.Block{root: root}
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom cfg.Block
			for _, p := range e.Preds(b) {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, order, p, newIdom)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	t := &Tree{
		root:     root,
		idom:     map[cfg.Block]cfg.Block{},
		children: map[cfg.Block][]cfg.Block{},
		pre:      map[cfg.Block]int32{},
		post:     map[cfg.Block]int32{},
	}
	for b, d := range idom {
		if b == root {
			t.idom[b] = nil
			continue
		}
		t.idom[b] = d
		t.children[d] = append(t.children[d], b)
	}

	var pre, post int32
	var number func(cfg.Block)
	number = func(b cfg.Block) {
		t.pre[b] = pre
		pre++
		for _, c := range t.children[b] {
			number(c)
		}
		t.post[b] = post
		post++
	}
	number(root)
	return t
}

// reversePostorder returns root's blocks in reverse-postorder (root
// first) along with a map from block to its position in that order.
func reversePostorder(root cfg.Block, succs func(cfg.Block) []cfg.Block) ([]cfg.Block, map[cfg.Block]int) {
	var postorder []cfg.Block
	seen := map[cfg.Block]bool{}
	var dfs func(cfg.Block)
	dfs = func(b cfg.Block) {
		if seen[b] {
			return
		}
		seen[b] = true
		for _, s := range succs(b) {
			dfs(s)
		}
		postorder = append(postorder, b)
	}
	dfs(root)

	rpo := postorder
	for i, j := 0, len(rpo)-1; i < j; i, j = i+1, j-1 {
		rpo[i], rpo[j] = rpo[j], rpo[i]
	}
	order := make(map[cfg.Block]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}
	return rpo, order
}

// intersect finds the nearest common ancestor of a and b in the partial
// dominator tree built so far, using their reverse-postorder numbers.
func intersect(idom map[cfg.Block]cfg.Block, order map[cfg.Block]int, a, b cfg.Block) cfg.Block {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (t *Tree) Dominates(a, b cfg.Block) bool {
	return t.pre[a] <= t.pre[b] && t.post[b] <= t.post[a]
}

// IDom returns b's immediate dominator, or nil for the root.
func (t *Tree) IDom(b cfg.Block) cfg.Block {
	return t.idom[b]
}

// Children returns the blocks b immediately dominates.
func (t *Tree) Children(b cfg.Block) []cfg.Block {
	return t.children[b]
}

// Root returns the block the tree is rooted at.
func (t *Tree) Root() cfg.Block {
	return t.root
}
