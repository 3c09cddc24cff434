// Package synthcfg builds small synthetic cfg.Function graphs by hand,
// for exercising domtree, postdom, loopinfo, dpd, bda and da without a
// real SSA frontend. It is a test helper, not a production adapter —
// contrast package ssaview.
package synthcfg

import "github.com/cdl-saarland/rv-divergence/cfg"

// Func is a mutable, hand-built cfg.Function.
type Func struct {
	name   string
	blocks []*Block
	params []cfg.Argument
}

// NewFunc creates an empty function named name.
func NewFunc(name string) *Func { return &Func{name: name} }

func (f *Func) Name() string { return f.name }

func (f *Func) Blocks() []cfg.Block {
	out := make([]cfg.Block, len(f.blocks))
	for i, b := range f.blocks {
		out[i] = b
	}
	return out
}

func (f *Func) Entry() cfg.Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

func (f *Func) Params() []cfg.Argument { return f.params }

// NewParam adds a parameter to f, in declaration order.
func (f *Func) NewParam(name string) *Argument {
	a := &Argument{name: name}
	f.params = append(f.params, a)
	return a
}

// NewBlock appends a new block to f. The first block added is the
// function's entry block.
func (f *Func) NewBlock(name string) *Block {
	b := &Block{fn: f, name: name}
	f.blocks = append(f.blocks, b)
	return b
}

// Block is a mutable, hand-built cfg.Block.
type Block struct {
	fn     *Func
	name   string
	succs  []*Block
	preds  []*Block
	instrs []cfg.Instruction
	term   *Term
}

func (b *Block) String() string { return b.name }

func (b *Block) Succs() []cfg.Block {
	out := make([]cfg.Block, len(b.succs))
	for i, s := range b.succs {
		out[i] = s
	}
	return out
}

func (b *Block) Preds() []cfg.Block {
	out := make([]cfg.Block, len(b.preds))
	for i, p := range b.preds {
		out[i] = p
	}
	return out
}

func (b *Block) Terminator() cfg.Terminator { return b.term }
func (b *Block) Instrs() []cfg.Instruction  { return b.instrs }

// AddEdge wires a CFG edge a -> succ. Call order determines the
// resulting Succs()/Preds() iteration order.
func AddEdge(a, succ *Block) {
	a.succs = append(a.succs, succ)
	succ.preds = append(succ.preds, a)
}

// Argument is a synthetic function parameter.
type Argument struct {
	name      string
	referrers []cfg.Value
}

func (a *Argument) Operands() []cfg.Value  { return nil }
func (a *Argument) Referrers() []cfg.Value { return a.referrers }
func (a *Argument) IsArgument()            {}
func (a *Argument) String() string         { return a.name }

// Const is a synthetic leaf value: neither an instruction nor an
// argument, standing in for a compile-time constant or undef.
type Const struct {
	name      string
	referrers []cfg.Value
}

func NewConst(name string) *Const { return &Const{name: name} }

func (c *Const) Operands() []cfg.Value  { return nil }
func (c *Const) Referrers() []cfg.Value { return c.referrers }
func (c *Const) String() string         { return c.name }

// Instr is a synthetic normal (non-phi, non-terminator) instruction.
type Instr struct {
	name      string
	block     *Block
	operands  []cfg.Value
	referrers []cfg.Value
}

func (i *Instr) Operands() []cfg.Value  { return i.operands }
func (i *Instr) Referrers() []cfg.Value { return i.referrers }
func (i *Instr) Block() cfg.Block       { return i.block }
func (i *Instr) String() string         { return i.name }

// NewInstr appends a normal instruction to b with the given operands.
func (b *Block) NewInstr(name string, operands ...cfg.Value) *Instr {
	i := &Instr{name: name, block: b, operands: operands}
	b.instrs = append(b.instrs, i)
	addReferrer(i, operands...)
	return i
}

func addReferrer(user cfg.Instruction, operands ...cfg.Value) {
	for _, op := range operands {
		switch v := op.(type) {
		case *Argument:
			v.referrers = append(v.referrers, user)
		case *Const:
			v.referrers = append(v.referrers, user)
		case *Instr:
			v.referrers = append(v.referrers, user)
		case *Phi:
			v.referrers = append(v.referrers, user)
		}
	}
}

// Phi is a synthetic phi instruction.
type Phi struct {
	name         string
	block        *Block
	edges        []cfg.PhiEdge
	referrers    []cfg.Value
	constOrUndef bool
}

func (p *Phi) Operands() []cfg.Value {
	out := make([]cfg.Value, len(p.edges))
	for i, e := range p.edges {
		out[i] = e.Value
	}
	return out
}

func (p *Phi) Referrers() []cfg.Value   { return p.referrers }
func (p *Phi) Block() cfg.Block         { return p.block }
func (p *Phi) Edges() []cfg.PhiEdge     { return p.edges }
func (p *Phi) HasConstantOrUndef() bool { return p.constOrUndef }
func (p *Phi) String() string           { return p.name }

// NewPhi prepends a phi to b — every cfg.Block requires phis before any
// other instruction. edges must list one entry per b.Preds(), in the
// same order. constOrUndef marks every edge value as constant/undef,
// per cfg.Phi.HasConstantOrUndef.
func (b *Block) NewPhi(name string, constOrUndef bool, edges ...cfg.PhiEdge) *Phi {
	p := &Phi{name: name, block: b, edges: edges, constOrUndef: constOrUndef}
	b.instrs = append([]cfg.Instruction{p}, b.instrs...)
	for _, e := range edges {
		addReferrer(p, e.Value)
	}
	return p
}

// Term is a synthetic terminator.
type Term struct {
	name     string
	block    *Block
	kind     cfg.TerminatorKind
	cond     cfg.Value
	operands []cfg.Value
}

func (t *Term) Operands() []cfg.Value    { return t.operands }
func (t *Term) Referrers() []cfg.Value   { return nil }
func (t *Term) Block() cfg.Block         { return t.block }
func (t *Term) Kind() cfg.TerminatorKind { return t.kind }
func (t *Term) Successors() []cfg.Block  { return t.block.Succs() }
func (t *Term) Condition() cfg.Value     { return t.cond }
func (t *Term) String() string           { return t.name }

func (b *Block) setTerm(t *Term) *Term {
	b.term = t
	b.instrs = append(b.instrs, t)
	return t
}

// SetBranch wires b -> then and b -> els (in that order) and makes b's
// terminator a conditional branch on cond.
func (b *Block) SetBranch(name string, cond cfg.Value, then, els *Block) *Term {
	AddEdge(b, then)
	AddEdge(b, els)
	t := &Term{name: name, block: b, kind: cfg.KindConditionalBranch, cond: cond, operands: []cfg.Value{cond}}
	addReferrer(t, cond)
	return b.setTerm(t)
}

// SetSwitch wires b -> each of succs and makes b's terminator a switch
// on cond.
func (b *Block) SetSwitch(name string, cond cfg.Value, succs ...*Block) *Term {
	for _, s := range succs {
		AddEdge(b, s)
	}
	t := &Term{name: name, block: b, kind: cfg.KindSwitch, cond: cond, operands: []cfg.Value{cond}}
	addReferrer(t, cond)
	return b.setTerm(t)
}

// SetJump wires b -> succ and makes b's terminator an unconditional jump.
func (b *Block) SetJump(name string, succ *Block) *Term {
	AddEdge(b, succ)
	t := &Term{name: name, block: b, kind: cfg.KindUnconditional}
	return b.setTerm(t)
}

// SetInvoke wires b -> each of succs and makes b's terminator an invoke.
func (b *Block) SetInvoke(name string, succs ...*Block) *Term {
	for _, s := range succs {
		AddEdge(b, s)
	}
	t := &Term{name: name, block: b, kind: cfg.KindInvoke}
	return b.setTerm(t)
}

// SetReturn makes b's terminator a return, with no successors.
func (b *Block) SetReturn(name string) *Term {
	t := &Term{name: name, block: b, kind: cfg.KindReturn}
	return b.setTerm(t)
}

// SetUnreachable makes b's terminator unreachable, with no successors.
func (b *Block) SetUnreachable(name string) *Term {
	t := &Term{name: name, block: b, kind: cfg.KindUnreachable}
	return b.setTerm(t)
}
