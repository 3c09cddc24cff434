// Package report renders divergence-analysis results as the diffable
// textual format spec.md §6 names: one "DIVERGENT:<instr>" line per
// divergent instruction, in program order, optionally wrapped in a
// frontend-specific header/footer.
package report

import (
	"fmt"
	"io"

	"github.com/cdl-saarland/rv-divergence/cfg"
)

// IsDivergent is satisfied by both *da.Analysis and the two frontends;
// report depends only on this narrow query, not on package da.
type IsDivergent interface {
	IsDivergent(cfg.Value) bool
}

// WriteDivergent writes one DIVERGENT: line per divergent instruction of
// fn, visiting blocks and instructions in program order.
func WriteDivergent(w io.Writer, fn cfg.Function, d IsDivergent) {
	for _, b := range fn.Blocks() {
		for _, instr := range b.Instrs() {
			if d.IsDivergent(instr) {
				fmt.Fprintf(w, "DIVERGENT:%s\n", StringOf(instr))
			}
		}
	}
}

// WriteKernel wraps WriteDivergent in the GPU frontend's textual block.
func WriteKernel(w io.Writer, name string, fn cfg.Function, d IsDivergent) {
	fmt.Fprintf(w, "Divergence of kernel %s {\n", name)
	WriteDivergent(w, fn, d)
	fmt.Fprint(w, "}\n")
}

// WriteLoop wraps WriteDivergent in the loop frontend's textual block.
func WriteLoop(w io.Writer, name string, fn cfg.Function, d IsDivergent) {
	fmt.Fprintf(w, "Divergence of loop %s {\n", name)
	WriteDivergent(w, fn, d)
	fmt.Fprint(w, "}\n")
}

// StringOf returns v's printed form: its own String method if it has one
// (every ssaview value does), else a generic fallback.
func StringOf(v cfg.Value) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
