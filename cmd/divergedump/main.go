// divergedump: a tool for dumping branch-divergence analysis results for
// Go packages.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cdl-saarland/rv-divergence/bda"
	"github.com/cdl-saarland/rv-divergence/cfg"
	"github.com/cdl-saarland/rv-divergence/domtree"
	"github.com/cdl-saarland/rv-divergence/frontends"
	"github.com/cdl-saarland/rv-divergence/loopinfo"
	"github.com/cdl-saarland/rv-divergence/postdom"
	"github.com/cdl-saarland/rv-divergence/ssaview"
)

var (
	gpuDivergent = flag.String("gpu-divergent", "", "comma-separated printed values the GPU target oracle treats as sources of divergence")
	gpuUniform   = flag.String("gpu-uniform", "", "comma-separated printed values the GPU target oracle treats as always uniform")
)

const usage = `divergedump: dump branch-divergence analysis results.
Usage: divergedump [-gpu-divergent=v,...] [-gpu-uniform=v,...] package...

With neither -gpu-divergent nor -gpu-uniform set, divergedump runs
LoopDivergenceAnalysis over every natural loop of every source function,
seeded from each loop's header phis, and prints the result.

With either flag set, divergedump instead runs GPUDivergenceAnalysis over
every source function, seeding a target oracle from value names matched
against each value's printed (String) form.
`

func main() {
	if err := doMain(); err != nil {
		fmt.Fprintf(os.Stderr, "divergedump: %s\n", err)
		os.Exit(1)
	}
}

func doMain() error {
	flag.Parse()
	if len(flag.Args()) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	pcfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
			packages.NeedTypesSizes | packages.NeedSyntax | packages.NeedTypesInfo,
	}
	initial, err := packages.Load(pcfg, flag.Args()...)
	if err != nil {
		return err
	}
	if len(initial) == 0 {
		return fmt.Errorf("no packages")
	}
	if packages.PrintErrors(initial) > 0 {
		return fmt.Errorf("packages contain errors")
	}

	_, pkgs := ssautil.Packages(initial, ssa.SanityCheckFunctions)
	for _, p := range pkgs {
		if p != nil {
			p.Build()
		}
	}

	var oracle *nameOracle
	if *gpuDivergent != "" || *gpuUniform != "" {
		oracle = newNameOracle(*gpuDivergent, *gpuUniform)
	}

	for _, p := range pkgs {
		if p == nil {
			continue
		}
		for _, m := range p.Members {
			fn, ok := m.(*ssa.Function)
			if !ok || len(fn.Blocks) == 0 {
				continue
			}
			if oracle != nil {
				dumpGPU(fn, oracle)
			} else {
				dumpLoops(fn)
			}
		}
	}
	return nil
}

func dumpLoops(fn *ssa.Function) {
	view := ssaview.New(fn)
	dt := domtree.BuildFunction(view)
	pdt := postdom.Build(view)
	li := loopinfo.Build(view, dt)
	b := bda.New(view, dt, pdt, li)

	for _, l := range li.Loops() {
		loopDiv := frontends.NewLoopDivergenceAnalysis(view, dt, li, b, l)
		loopDiv.Print(os.Stdout, view)
	}
}

func dumpGPU(fn *ssa.Function, oracle cfg.TargetOracle) {
	view := ssaview.New(fn)
	dt := domtree.BuildFunction(view)
	pdt := postdom.Build(view)
	li := loopinfo.Build(view, dt)

	gpuDiv := frontends.NewGPUDivergenceAnalysis(view, dt, pdt, li, oracle)
	gpuDiv.Print(os.Stdout)
}

// nameOracle is a trivial cfg.TargetOracle matching values by their
// printed (String) form against two name sets given on the command line.
type nameOracle struct {
	divergent map[string]bool
	uniform   map[string]bool
}

func newNameOracle(divergentList, uniformList string) *nameOracle {
	o := &nameOracle{divergent: map[string]bool{}, uniform: map[string]bool{}}
	for _, n := range splitNames(divergentList) {
		o.divergent[n] = true
	}
	for _, n := range splitNames(uniformList) {
		o.uniform[n] = true
	}
	return o
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (o *nameOracle) IsSourceOfDivergence(v cfg.Value) bool { return o.divergent[printedName(v)] }
func (o *nameOracle) IsAlwaysUniform(v cfg.Value) bool      { return o.uniform[printedName(v)] }

func printedName(v cfg.Value) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return ""
}
