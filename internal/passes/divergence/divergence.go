// Package divergence defines a go/analysis.Analyzer that runs
// LoopDivergenceAnalysis over every natural loop of every source
// function and reports each instruction it finds divergent. It depends
// on golang.org/x/tools/go/analysis/passes/buildssa for the SSA it
// analyzes, so the analysis can be composed into any go/analysis driver
// (go vet, staticcheck-style multichecker, ...) rather than only the
// standalone cmd/divergedump tool.
package divergence

import (
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/ssa"

	"github.com/cdl-saarland/rv-divergence/bda"
	"github.com/cdl-saarland/rv-divergence/domtree"
	"github.com/cdl-saarland/rv-divergence/frontends"
	"github.com/cdl-saarland/rv-divergence/loopinfo"
	"github.com/cdl-saarland/rv-divergence/postdom"
	"github.com/cdl-saarland/rv-divergence/report"
	"github.com/cdl-saarland/rv-divergence/ssaview"
)

var Analyzer = &analysis.Analyzer{
	Name:     "divergence",
	Doc:      "report values that LoopDivergenceAnalysis finds divergent inside a loop",
	Run:      run,
	Requires: []*analysis.Analyzer{buildssa.Analyzer},
}

func run(pass *analysis.Pass) (interface{}, error) {
	ssainfo := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)

	for _, fn := range ssainfo.SrcFuncs {
		if len(fn.Blocks) == 0 {
			continue // external or intrinsic function, no body to analyze
		}
		analyzeFunction(pass, fn)
	}
	return nil, nil
}

func analyzeFunction(pass *analysis.Pass, fn *ssa.Function) {
	view := ssaview.New(fn)
	dt := domtree.BuildFunction(view)
	pdt := postdom.Build(view)
	li := loopinfo.Build(view, dt)
	b := bda.New(view, dt, pdt, li)

	for _, l := range li.Loops() {
		loopDiv := frontends.NewLoopDivergenceAnalysis(view, dt, li, b, l)
		for _, blk := range fn.Blocks {
			if !l.Contains(view.Block(blk)) {
				continue
			}
			for _, instr := range blk.Instrs {
				v := view.Instr(instr)
				if !loopDiv.IsDivergent(v) {
					continue
				}
				pass.Reportf(instr.Pos(), "divergent: %s", report.StringOf(v))
			}
		}
	}
}
