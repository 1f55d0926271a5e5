package graph

import "github.com/agraph/flow/internal/variable"

// NestedNode wraps a child scope's entry node, grounded on the original
// draft's GraphNested/GraphCall. The scheduler recurses into a fresh
// child scheduler rooted at Start rather than executing NestedNode
// itself; ReadVars/WriteVars are precomputed at build time by
// analyzeLinear so the parent scope can compute dependence counts
// without re-walking the child graph on every scan.
type NestedNode struct {
	base

	Start     Node
	ReadVars  []ReadEntry
	WriteVars []*variable.Var
}

// Nested builds a Pair wrapping child as a nested scope.
func Nested(child Pair) Pair {
	reads, writes := analyzeLinear(child.Start)
	n := &NestedNode{Start: child.Start, ReadVars: reads, WriteVars: writes}
	return Pair{Start: n, End: n}
}

func (n *NestedNode) ReadSet() []ReadEntry { return n.ReadVars }

func (n *NestedNode) WriteSet() []*variable.Var { return n.WriteVars }
