// Package frontends seeds Divergence Analysis for the two entry points
// spec.md §4.5 names: LoopDivergenceAnalysis, which treats one natural
// loop as a SIMT kernel body (its header phis are the induction
// variables, the lanes that matter are the ones still live inside the
// loop), and GPUDivergenceAnalysis, which seeds from a target-specific
// oracle over an entire function.
package frontends

import (
	"fmt"
	"io"

	"github.com/cdl-saarland/rv-divergence/bda"
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/da"
	"github.com/cdl-saarland/rv-divergence/internal/cfgutil"
	"github.com/cdl-saarland/rv-divergence/report"
)

// LoopDivergenceAnalysis runs DA over one loop's region, seeded from its
// header phis, under the assumption that the loop's exit condition is
// uniform (true once a scalar remainder has been peeled off).
type LoopDivergenceAnalysis struct {
	da   *da.Analysis
	loop cfg.Loop
}

// NewLoopDivergenceAnalysis seeds and runs DA over loop. b is a shared BDA
// instance, typically reused across every loop of one function.
func NewLoopDivergenceAnalysis(fn cfg.Function, dt cfg.DomTree, li cfg.LoopInfo, b *bda.Analysis, loop cfg.Loop) *LoopDivergenceAnalysis {
	d := da.New(fn, loop, dt, li, b)

	for _, phi := range cfgutil.Phis(loop.Header()) {
		d.MarkDivergent(phi)
	}

	for _, exiting := range exitingBlocks(loop) {
		if cond := exiting.Terminator().Condition(); cond != nil {
			d.AddUniformOverride(cond)
		}
	}

	d.Compute(true) // LCSSA form
	return &LoopDivergenceAnalysis{da: d, loop: loop}
}

// IsDivergent reports whether v is divergent within the loop's region.
func (l *LoopDivergenceAnalysis) IsDivergent(v cfg.Value) bool { return l.da.IsDivergent(v) }

// Print writes the loop's divergence report to w, wrapped in
// "Divergence of loop <name> { ... }".
func (l *LoopDivergenceAnalysis) Print(w io.Writer, fn cfg.Function) {
	report.WriteLoop(w, blockName(l.loop.Header()), fn, l.da)
}

// exitingBlocks returns the in-loop blocks with at least one successor
// outside loop, found by a traversal from loop's header restricted to
// loop's own blocks.
func exitingBlocks(loop cfg.Loop) []cfg.Block {
	var exiting cfgutil.BlockSet
	seen := map[cfg.Block]bool{loop.Header(): true}
	stack := []cfg.Block{loop.Header()}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		isExiting := false
		for _, s := range b.Succs() {
			if !loop.Contains(s) {
				isExiting = true
				continue
			}
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
		if isExiting {
			exiting.Add(b)
		}
	}
	return exiting.Slice()
}

func blockName(b cfg.Block) string {
	if s, ok := b.(fmt.Stringer); ok {
		return s.String()
	}
	return "<block>"
}

// GPUDivergenceAnalysis runs DA over a whole function, seeded from a
// target-specific oracle's verdicts on every instruction and parameter.
type GPUDivergenceAnalysis struct {
	fn cfg.Function
	da *da.Analysis
}

// NewGPUDivergenceAnalysis seeds and runs DA over fn, consulting oracle
// for every instruction and parameter.
func NewGPUDivergenceAnalysis(fn cfg.Function, dt cfg.DomTree, pdt cfg.PostDomTree, li cfg.LoopInfo, oracle cfg.TargetOracle) *GPUDivergenceAnalysis {
	b := bda.New(fn, dt, pdt, li)
	d := da.New(fn, nil, dt, li, b)

	seed := func(v cfg.Value) {
		if oracle.IsSourceOfDivergence(v) {
			d.MarkDivergent(v)
		}
		if oracle.IsAlwaysUniform(v) {
			d.AddUniformOverride(v)
		}
	}

	for _, arg := range fn.Params() {
		seed(arg)
	}
	for _, block := range fn.Blocks() {
		for _, instr := range block.Instrs() {
			seed(instr)
		}
	}

	d.Compute(false)
	return &GPUDivergenceAnalysis{fn: fn, da: d}
}

// IsDivergent reports whether v is divergent somewhere in the kernel.
func (g *GPUDivergenceAnalysis) IsDivergent(v cfg.Value) bool { return g.da.IsDivergent(v) }

// Print writes the kernel's divergence report to w, wrapped in
// "Divergence of kernel <name> { ... }".
func (g *GPUDivergenceAnalysis) Print(w io.Writer) {
	report.WriteKernel(w, g.fn.Name(), g.fn, g.da)
}
