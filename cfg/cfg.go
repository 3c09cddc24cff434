// Package cfg defines the read-only contracts that the branch-dependence
// and divergence analyses consume. It does not build CFGs, dominator
// trees, or loop information itself — see package ssaview for an adapter
// backed by golang.org/x/tools/go/ssa, and packages domtree, postdom and
// loopinfo for reference collaborator implementations.
//
// Every type here is a borrowed, read-only view. Implementations must
// return stable values for the lifetime of a single analysis run and must
// iterate slices (Succs, Preds, Instrs, ...) in a fixed order, since BDA
// and DA determinism depends on it.
package cfg

// TerminatorKind discriminates the control-flow behaviour of a Terminator.
type TerminatorKind int

const (
	KindInvalid TerminatorKind = iota
	KindConditionalBranch
	KindSwitch
	KindUnconditional
	KindInvoke
	KindReturn
	KindUnreachable
)

func (k TerminatorKind) String() string {
	switch k {
	case KindConditionalBranch:
		return "conditional-branch"
	case KindSwitch:
		return "switch"
	case KindUnconditional:
		return "unconditional"
	case KindInvoke:
		return "invoke"
	case KindReturn:
		return "return"
	case KindUnreachable:
		return "unreachable"
	default:
		return "invalid"
	}
}

// Block is a node of the control-flow graph.
type Block interface {
	// Succs returns the block's successors, in a stable order.
	Succs() []Block
	// Preds returns the block's predecessors, in a stable order.
	Preds() []Block
	// Terminator returns the block's terminating instruction.
	Terminator() Terminator
	// Instrs returns the block's instructions in program order. Any phis
	// come first, the terminator comes last.
	Instrs() []Instruction
}

// Value is any SSA definition or function argument.
type Value interface {
	// Operands returns the values this value depends on.
	Operands() []Value
	// Referrers returns the values that use this value as an operand.
	Referrers() []Value
}

// Instruction is a Value (or void-result operation, such as a terminator)
// that lives inside a Block.
type Instruction interface {
	Value
	Block() Block
}

// Argument is a function parameter: a Value with no parent Block.
type Argument interface {
	Value
	// IsArgument is a marker method distinguishing Arguments from other
	// Values at the markDivergent API boundary.
	IsArgument()
}

// Terminator is the last instruction of a Block.
type Terminator interface {
	Instruction
	Kind() TerminatorKind
	// Successors returns the blocks this terminator may transfer control
	// to. Empty for Return and Unreachable.
	Successors() []Block
	// Condition returns the branch/switch condition. Nil for all other
	// kinds.
	Condition() Value
}

// PhiEdge pairs an incoming value with the predecessor block it flows in
// from.
type PhiEdge struct {
	Pred  Block
	Value Value
}

// Phi is a distinguished Instruction merging values from multiple
// predecessors.
type Phi interface {
	Instruction
	// Edges returns one entry per predecessor of the Phi's block, in the
	// same order as Block().Preds().
	Edges() []PhiEdge
	// HasConstantOrUndef reports whether every incoming value is a
	// constant or undef, in which case join-divergence alone must not
	// make the phi divergent (spec.md §4.4 rule 3).
	HasConstantOrUndef() bool
}

// Function is a read-only view of one function's CFG.
type Function interface {
	Name() string
	Blocks() []Block
	Entry() Block
	// Params returns the function's parameters, in declaration order.
	Params() []Argument
}

// DomTree answers dominance queries over the (forward) CFG.
type DomTree interface {
	// Dominates reports whether a dominates b (a block dominates itself).
	Dominates(a, b Block) bool
	// IDom returns b's immediate dominator, or nil for the entry block.
	IDom(b Block) Block
}

// PostDomTree answers dominance queries over the reverse CFG.
type PostDomTree interface {
	// PostDominates reports whether a post-dominates b.
	PostDominates(a, b Block) bool
	// IPDom returns b's immediate post-dominator, or nil if every path
	// from b leaves the function without reconverging (e.g. b itself
	// exits on every path).
	IPDom(b Block) Block
}

// Loop is a set of blocks with a single header and latch, forming a tree
// by containment. The analysis assumes reducible loops.
type Loop interface {
	Header() Block
	Latch() Block
	// Exits returns the loop's exit blocks: successors of in-loop blocks
	// that are themselves outside the loop.
	Exits() []Block
	Contains(b Block) bool
	// Parent returns the immediately enclosing loop, or nil at the top
	// level.
	Parent() Loop
}

// LoopInfo maps blocks to their innermost containing loop.
type LoopInfo interface {
	// LoopFor returns the innermost loop containing b, or nil if b is
	// not in any loop.
	LoopFor(b Block) Loop
}

// TargetOracle identifies sources of divergence and always-uniform values
// for a specific execution target (e.g. a GPU ISA). It is consulted only
// by the GPU frontend; BDA and DA never call it directly.
type TargetOracle interface {
	IsSourceOfDivergence(v Value) bool
	IsAlwaysUniform(v Value) bool
}
