// Package da implements Divergence Analysis: a monotone worklist fixpoint
// that starts from a seed set of divergent values and propagates
// divergence along data edges (operands), control edges (via package
// bda's join blocks at divergent terminators), and loop-carried edges
// (temporal divergence of loop live-outs).
//
// An Analysis is single-use: construct it, seed it with MarkDivergent and
// AddUniformOverride, call Compute once, then query IsDivergent.
package da

import (
	"github.com/cdl-saarland/rv-divergence/bda"
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/internal/cfgutil"
)

// Analysis holds one fixpoint computation's state. It borrows its CFG,
// dominator tree, loop info and BDA instance; it must not outlive them.
type Analysis struct {
	fn     cfg.Function
	dt     cfg.DomTree
	li     cfg.LoopInfo
	bda    *bda.Analysis
	region cfg.Loop // nil means "whole function"
	lcssa  bool

	divergent               map[cfg.Value]bool
	uniform                 map[cfg.Value]bool
	joinDivergentBlocks     map[cfg.Block]bool
	temporalDivergentBlocks map[cfg.Block]bool

	seeds    []cfg.Value
	worklist []cfg.Instruction
	queued   map[cfg.Instruction]bool
}

// New creates a DA instance over fn. regionLoop restricts user-propagation
// to instructions inside that loop (LoopDivergenceAnalysis's use case);
// pass nil to propagate across the whole function (GPUDivergenceAnalysis).
func New(fn cfg.Function, regionLoop cfg.Loop, dt cfg.DomTree, li cfg.LoopInfo, b *bda.Analysis) *Analysis {
	return &Analysis{
		fn:                      fn,
		dt:                      dt,
		li:                      li,
		bda:                     b,
		region:                  regionLoop,
		divergent:               map[cfg.Value]bool{},
		uniform:                 map[cfg.Value]bool{},
		joinDivergentBlocks:     map[cfg.Block]bool{},
		temporalDivergentBlocks: map[cfg.Block]bool{},
		queued:                  map[cfg.Instruction]bool{},
	}
}

// MarkDivergent seeds v as divergent.
// Precondition: v is an Instruction or Argument, and v has not been added
// via AddUniformOverride. Violating either is a programming error and
// panics.
func (a *Analysis) MarkDivergent(v cfg.Value) {
	if _, ok := v.(cfg.Instruction); !ok {
		if _, ok := v.(cfg.Argument); !ok {
			panic("da: MarkDivergent requires an instruction or argument")
		}
	}
	if a.uniform[v] {
		panic("da: MarkDivergent called on a value already added via AddUniformOverride")
	}
	if a.divergent[v] {
		return
	}
	a.divergent[v] = true
	a.seeds = append(a.seeds, v)
}

// AddUniformOverride marks v as immutable uniform: it will never be
// reported divergent, regardless of its operands or control dependences.
func (a *Analysis) AddUniformOverride(v cfg.Value) {
	if a.divergent[v] {
		panic("da: AddUniformOverride called on a value already marked divergent")
	}
	a.uniform[v] = true
}

// IsDivergent reports whether v is currently known divergent.
func (a *Analysis) IsDivergent(v cfg.Value) bool { return a.divergent[v] }

// IsAlwaysUniform reports whether v was added via AddUniformOverride.
func (a *Analysis) IsAlwaysUniform(v cfg.Value) bool { return a.uniform[v] }

// Compute runs the fixpoint to quiescence. isLCSSA tells the terminator
// update rule whether cross-loop joins are guaranteed to flow through
// LCSSA phis (true) or must instead be handled by tainting loop live-outs
// (false).
func (a *Analysis) Compute(isLCSSA bool) {
	a.lcssa = isLCSSA
	for _, v := range a.seeds {
		a.pushUsers(v)
	}
	for len(a.worklist) > 0 {
		n := len(a.worklist) - 1
		instr := a.worklist[n]
		a.worklist = a.worklist[:n]
		delete(a.queued, instr)
		a.step(instr)
	}
}

// step applies the update rule to one popped instruction.
func (a *Analysis) step(instr cfg.Instruction) {
	if a.IsAlwaysUniform(instr) || a.IsDivergent(instr) {
		return
	}

	switch v := instr.(type) {
	case cfg.Terminator:
		a.stepTerminator(v)
	case cfg.Phi:
		a.stepPhi(v)
	default:
		newDiv := false
		for _, op := range instr.Operands() {
			if a.IsDivergent(op) {
				newDiv = true
				break
			}
		}
		if newDiv {
			a.divergent[instr] = true
			a.pushUsers(instr)
		}
	}
}

func (a *Analysis) stepTerminator(t cfg.Terminator) {
	var newDiv bool
	switch t.Kind() {
	case cfg.KindConditionalBranch, cfg.KindSwitch:
		newDiv = a.IsDivergent(t.Condition())
	case cfg.KindInvoke, cfg.KindUnconditional, cfg.KindReturn, cfg.KindUnreachable:
		newDiv = false
	default:
		panic("da: unrecognized terminator kind")
	}
	if !newDiv {
		return
	}
	a.divergent[t] = true
	a.pushUsers(t)
	a.expandTerminator(t)
}

func (a *Analysis) stepPhi(phi cfg.Phi) {
	b := phi.Block()
	newDiv := a.temporalDivergentBlocks[b] ||
		(!phi.HasConstantOrUndef() && a.joinDivergentBlocks[b])
	if !newDiv {
		for _, e := range phi.Edges() {
			if a.IsDivergent(e.Value) {
				newDiv = true
				break
			}
		}
	}
	if newDiv {
		a.divergent[phi] = true
		a.pushUsers(phi)
	}
}

// expandTerminator applies BDA's join blocks once t has transitioned to
// divergent, per spec.md §4.4's terminator-expansion rule.
func (a *Analysis) expandTerminator(t cfg.Terminator) {
	p := t.Block()
	lt := a.li.LoopFor(p)
	for _, j := range a.bda.JoinBlocks(t) {
		lj := a.li.LoopFor(j)
		switch {
		case lj == lt:
			a.markJoinDivergent(j)
		case a.lcssa:
			a.markTemporalDivergent(j)
		default:
			var header cfg.Block
			if lt != nil {
				header = lt.Header()
			}
			a.taintLoopLiveOuts(header)
		}
	}
}

func (a *Analysis) markJoinDivergent(b cfg.Block) {
	if a.joinDivergentBlocks[b] {
		return
	}
	a.joinDivergentBlocks[b] = true
	a.pushPhis(b)
}

func (a *Analysis) markTemporalDivergent(b cfg.Block) {
	if a.temporalDivergentBlocks[b] {
		return
	}
	a.temporalDivergentBlocks[b] = true
	a.pushPhis(b)
}

func (a *Analysis) pushPhis(b cfg.Block) {
	for _, phi := range cfgutil.Phis(b) {
		a.push(phi)
	}
}

// taintLoopLiveOuts walks forward from loop_of(h)'s exits, tainting
// out-of-loop uses of in-loop values. The visited set is keyed on the
// block being pushed, not the block being expanded, so each block is
// expanded at most once; an earlier source keyed it on the expanded
// block instead, which under-visits diamond-shaped exit regions.
func (a *Analysis) taintLoopLiveOuts(h cfg.Block) {
	if h == nil {
		return
	}
	loop := a.li.LoopFor(h)
	if loop == nil {
		return
	}

	visited := map[cfg.Block]bool{h: true}
	var queue []cfg.Block
	for _, e := range loop.Exits() {
		if !visited[e] {
			visited[e] = true
			queue = append(queue, e)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if loop.Contains(u) {
			panic("da: taintLoopLiveOuts reached a block inside its own loop (irreducible control flow?)")
		}

		if !a.dt.Dominates(h, u) {
			a.markTemporalDivergent(u)
			continue
		}

		for _, i := range u.Instrs() {
			if a.IsAlwaysUniform(i) || a.IsDivergent(i) {
				continue
			}
			fromLoop := false
			for _, op := range i.Operands() {
				if opInstr, ok := op.(cfg.Instruction); ok && loop.Contains(opInstr.Block()) {
					fromLoop = true
					break
				}
			}
			if fromLoop {
				a.divergent[i] = true
				a.pushUsers(i)
			}
		}

		for _, s := range u.Succs() {
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}
}

// pushUsers enqueues every in-region user of v that is an instruction.
func (a *Analysis) pushUsers(v cfg.Value) {
	for _, user := range v.Referrers() {
		instr, ok := user.(cfg.Instruction)
		if !ok {
			continue
		}
		if a.region != nil && !a.region.Contains(instr.Block()) {
			continue
		}
		a.push(instr)
	}
}

func (a *Analysis) push(instr cfg.Instruction) {
	if a.queued[instr] {
		return
	}
	a.queued[instr] = true
	a.worklist = append(a.worklist, instr)
}
