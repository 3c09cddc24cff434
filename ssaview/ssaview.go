// Package ssaview adapts golang.org/x/tools/go/ssa's IR into the cfg
// package's read-only contracts, so that bda/da/frontends can run over
// real Go functions instead of only synthetic test fixtures.
//
// Every adapter value is a thin, cached wrapper around one ssa.Value or
// ssa.Instruction; New builds the wrapper graph for one *ssa.Function
// once, and every cfg method call thereafter is a map lookup plus a
// pass-through to the underlying ssa object. Wrapper identity is stable
// for the lifetime of the Function, which is what lets bda/da use cfg
// values as map keys.
//
// go/ssa lowers switch statements into chains of *ssa.If and has no
// invoke terminator (Go has no exception-based control transfer), so
// terminator kinds produced here are limited to conditional-branch,
// unconditional, return and unreachable; cfg.KindSwitch and
// cfg.KindInvoke never occur.
package ssaview

import (
	"fmt"

	"golang.org/x/tools/go/ssa"

	"github.com/cdl-saarland/rv-divergence/cfg"
)

// Function adapts one *ssa.Function.
type Function struct {
	fn *ssa.Function

	blocks []cfg.Block
	params []cfg.Argument

	byBlock map[*ssa.BasicBlock]*block
	byValue map[ssa.Value]cfg.Value
	byInstr map[ssa.Instruction]cfg.Value
}

// New builds a Function view over fn. fn must already be built
// (fn.Blocks populated) with referrer tracking enabled — the default
// ssa.BuilderMode, i.e. NaiveForm unset.
func New(fn *ssa.Function) *Function {
	f := &Function{
		fn:      fn,
		byBlock: map[*ssa.BasicBlock]*block{},
		byValue: map[ssa.Value]cfg.Value{},
		byInstr: map[ssa.Instruction]cfg.Value{},
	}
	for _, b := range fn.Blocks {
		if b == nil {
			continue
		}
		f.blocks = append(f.blocks, f.getBlock(b))
	}
	for _, p := range fn.Params {
		f.params = append(f.params, f.getValue(p).(cfg.Argument))
	}
	return f
}

func (f *Function) Name() string           { return f.fn.Name() }
func (f *Function) Blocks() []cfg.Block    { return f.blocks }
func (f *Function) Params() []cfg.Argument { return f.params }

func (f *Function) Entry() cfg.Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// Block returns the cfg.Block view of b, for callers that hold raw
// *ssa.BasicBlock references (e.g. a go/analysis pass reporting
// diagnostics against source positions).
func (f *Function) Block(b *ssa.BasicBlock) cfg.Block { return f.getBlock(b) }

// Instr returns the cfg.Value view of i, whether or not i produces a
// result.
func (f *Function) Instr(i ssa.Instruction) cfg.Value { return f.getInstrValue(i) }

func (f *Function) getBlock(b *ssa.BasicBlock) *block {
	if b == nil {
		return nil
	}
	if w, ok := f.byBlock[b]; ok {
		return w
	}
	w := &block{f: f, b: b}
	f.byBlock[b] = w
	w.build()
	return w
}

// getValue returns the cached cfg.Value wrapping v, constructing it on
// first use.
func (f *Function) getValue(v ssa.Value) cfg.Value {
	if v == nil {
		return nil
	}
	if w, ok := f.byValue[v]; ok {
		return w
	}
	var w cfg.Value
	switch vv := v.(type) {
	case *ssa.Parameter:
		w = &argument{f: f, v: vv}
	case *ssa.Phi:
		w = &phi{f: f, p: vv}
	default:
		if instr, ok := v.(ssa.Instruction); ok {
			w = &plainInstr{f: f, i: instr}
		} else {
			w = &leafValue{f: f, v: v}
		}
	}
	f.byValue[v] = w
	return w
}

// getInstrValue returns the cached cfg.Value wrapping i, whether or not i
// is itself an ssa.Value (e.g. *ssa.Store is an Instruction but not a
// Value).
func (f *Function) getInstrValue(i ssa.Instruction) cfg.Value {
	if v, ok := i.(ssa.Value); ok {
		return f.getValue(v)
	}
	if w, ok := f.byInstr[i]; ok {
		return w
	}
	w := &plainInstr{f: f, i: i}
	f.byInstr[i] = w
	return w
}

func (f *Function) operandsOf(i ssa.Instruction) []cfg.Value {
	var rands []*ssa.Value
	rands = i.Operands(rands)
	var out []cfg.Value
	for _, r := range rands {
		if r == nil || *r == nil {
			continue
		}
		out = append(out, f.getValue(*r))
	}
	return out
}

func (f *Function) referrersOf(v ssa.Value) []cfg.Value {
	refs := v.Referrers()
	if refs == nil {
		return nil
	}
	var out []cfg.Value
	for _, r := range *refs {
		out = append(out, f.getInstrValue(r))
	}
	return out
}

// block adapts one *ssa.BasicBlock.
type block struct {
	f      *Function
	b      *ssa.BasicBlock
	instrs []cfg.Instruction
	term   cfg.Terminator
}

func (w *block) build() {
	n := len(w.b.Instrs)
	for idx, raw := range w.b.Instrs {
		if idx == n-1 {
			t := &terminator{f: w.f, instr: raw}
			w.f.byInstr[raw] = t
			w.term = t
			w.instrs = append(w.instrs, t)
			continue
		}
		w.instrs = append(w.instrs, w.f.getInstrValue(raw).(cfg.Instruction))
	}
}

func (w *block) Succs() []cfg.Block {
	out := make([]cfg.Block, len(w.b.Succs))
	for i, s := range w.b.Succs {
		out[i] = w.f.getBlock(s)
	}
	return out
}

func (w *block) Preds() []cfg.Block {
	out := make([]cfg.Block, len(w.b.Preds))
	for i, p := range w.b.Preds {
		out[i] = w.f.getBlock(p)
	}
	return out
}

func (w *block) Terminator() cfg.Terminator { return w.term }
func (w *block) Instrs() []cfg.Instruction  { return w.instrs }

func (w *block) String() string {
	return fmt.Sprintf("%s#%d", w.f.fn.Name(), w.b.Index)
}

// leafValue adapts a non-instruction ssa.Value: a constant, global,
// builtin, free variable, or function literal used as a value.
type leafValue struct {
	f *Function
	v ssa.Value
}

func (w *leafValue) Operands() []cfg.Value  { return nil }
func (w *leafValue) Referrers() []cfg.Value { return w.f.referrersOf(w.v) }
func (w *leafValue) String() string         { return w.v.String() }

// argument adapts an *ssa.Parameter.
type argument struct {
	f *Function
	v *ssa.Parameter
}

func (w *argument) Operands() []cfg.Value  { return nil }
func (w *argument) Referrers() []cfg.Value { return w.f.referrersOf(w.v) }
func (w *argument) IsArgument()            {}
func (w *argument) String() string         { return w.v.String() }

// plainInstr adapts any ssa.Instruction that is neither a block
// terminator nor a phi: value-producing instructions (*ssa.BinOp,
// *ssa.Call, ...) and void ones (*ssa.Store, *ssa.MapUpdate, ...) alike.
type plainInstr struct {
	f *Function
	i ssa.Instruction
}

func (w *plainInstr) Block() cfg.Block   { return w.f.getBlock(w.i.Block()) }
func (w *plainInstr) Operands() []cfg.Value { return w.f.operandsOf(w.i) }

func (w *plainInstr) Referrers() []cfg.Value {
	v, ok := w.i.(ssa.Value)
	if !ok {
		return nil
	}
	return w.f.referrersOf(v)
}

func (w *plainInstr) String() string { return w.i.String() }

// phi adapts an *ssa.Phi.
type phi struct {
	f *Function
	p *ssa.Phi
}

func (w *phi) Block() cfg.Block      { return w.f.getBlock(w.p.Block()) }
func (w *phi) Operands() []cfg.Value { return w.f.operandsOf(w.p) }
func (w *phi) Referrers() []cfg.Value { return w.f.referrersOf(w.p) }
func (w *phi) String() string        { return w.p.String() }

func (w *phi) Edges() []cfg.PhiEdge {
	preds := w.p.Block().Preds
	out := make([]cfg.PhiEdge, len(w.p.Edges))
	for i, e := range w.p.Edges {
		var pred cfg.Block
		if i < len(preds) {
			pred = w.f.getBlock(preds[i])
		}
		out[i] = cfg.PhiEdge{Pred: pred, Value: w.f.getValue(e)}
	}
	return out
}

// HasConstantOrUndef reports whether every incoming value is a constant.
// go/ssa has no separate "undef" value kind; zero values and undefined
// results are themselves represented as *ssa.Const, so "constant or
// undef" collapses to "is *ssa.Const" in this adapter.
func (w *phi) HasConstantOrUndef() bool {
	for _, e := range w.p.Edges {
		if _, ok := e.(*ssa.Const); !ok {
			return false
		}
	}
	return true
}

// terminator adapts a block's last instruction: *ssa.If, *ssa.Jump,
// *ssa.Return or *ssa.Panic. None of these implement ssa.Value, so
// Referrers is always empty.
type terminator struct {
	f     *Function
	instr ssa.Instruction
}

func (w *terminator) Block() cfg.Block      { return w.f.getBlock(w.instr.Block()) }
func (w *terminator) Operands() []cfg.Value { return w.f.operandsOf(w.instr) }
func (w *terminator) Referrers() []cfg.Value { return nil }
func (w *terminator) String() string         { return w.instr.String() }

func (w *terminator) Kind() cfg.TerminatorKind {
	switch w.instr.(type) {
	case *ssa.If:
		return cfg.KindConditionalBranch
	case *ssa.Jump:
		return cfg.KindUnconditional
	case *ssa.Return:
		return cfg.KindReturn
	case *ssa.Panic:
		return cfg.KindUnreachable
	default:
		return cfg.KindInvalid
	}
}

func (w *terminator) Successors() []cfg.Block {
	succs := w.instr.Block().Succs
	out := make([]cfg.Block, len(succs))
	for i, s := range succs {
		out[i] = w.f.getBlock(s)
	}
	return out
}

func (w *terminator) Condition() cfg.Value {
	iff, ok := w.instr.(*ssa.If)
	if !ok {
		return nil
	}
	return w.f.getValue(iff.Cond)
}
