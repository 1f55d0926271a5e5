package graph

import "github.com/agraph/flow/internal/variable"

// BranchNode picks next(0) or next(1) based on the resolved value of
// Cond, grounded on the original draft's GraphNodeBranch. BranchNode
// itself has no body for the executor to run -- the scheduler resolves
// Cond's value directly once it is available and continues scanning
// down the chosen edge. No user-facing combinator builds one directly
// (see SPEC_FULL.md §9's Open Question); it exists so a future
// conditional combinator has somewhere to attach without changing the
// scheduler's core loop.
type BranchNode struct {
	base

	Cond *variable.Var
}

func (n *BranchNode) ReadSet() []ReadEntry {
	return []ReadEntry{ReadOnly(n.Cond)}
}

func (n *BranchNode) WriteSet() []*variable.Var { return nil }

// Resolve reports which successor edge to continue scanning down for
// the given resolved value of Cond.
func (n *BranchNode) Resolve(condValue bool) Node {
	if condValue {
		return n.next[0]
	}
	return n.next[1]
}
