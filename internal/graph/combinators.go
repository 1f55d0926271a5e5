package graph

import "github.com/agraph/flow/internal/variable"

// Pair is an open graph fragment: Start is its entry node, End is the
// node whose next(0) edge is still free for the next fragment to
// attach to. Grounded on the original draft's GraphPair/__or__.
type Pair struct {
	Start Node
	End   Node
}

// Then splices next after p, wiring p.End's primary successor edge to
// next.Start, and returns the combined fragment.
func (p Pair) Then(next Pair) Pair {
	p.End.SetNext(0, next.Start)
	return Pair{Start: p.Start, End: next.End}
}

// Sequence chains fragments in order, equivalent to folding Then over
// them. Grounded on the original draft's createSequence.
func Sequence(pairs ...Pair) Pair {
	if len(pairs) == 0 {
		panic("graph: Sequence requires at least one fragment")
	}
	out := pairs[0]
	for _, p := range pairs[1:] {
		out = out.Then(p)
	}
	return out
}

// Runnable is the top-level handle a caller hands to a scheduler: the
// entry node of a complete graph built from Sequence/LLMAgent/
// PythonAgent/Nested fragments.
type Runnable struct {
	Start Node
}

// NewRunnable finalizes a fragment into a Runnable.
func NewRunnable(p Pair) *Runnable {
	return &Runnable{Start: p.Start}
}

// analyzeLinear walks a linear chain (following only next(0), since no
// user-facing combinator produces branches) computing the chain's
// effective external read and write sets: a read of a variable the
// chain itself wrote earlier is a purely local dependency and is
// dropped, matching the original draft's analyzeLinear. Grounded on
// original_source/agentgraph/graph/Graph.py's analyzeLinear.
func analyzeLinear(start Node) ([]ReadEntry, []*variable.Var) {
	writtenLocally := make(map[*variable.Var]bool)
	reads := make(map[*variable.Var]ReadEntry)
	var readOrder []*variable.Var
	writes := make(map[*variable.Var]bool)
	var writeOrder []*variable.Var

	for n := start; n != nil; n = n.Next(0) {
		for _, re := range n.ReadSet() {
			if writtenLocally[re.Var] {
				continue
			}
			if existing, ok := reads[re.Var]; ok {
				if existing.ReadOnly && !re.ReadOnly {
					reads[re.Var] = re
				}
				continue
			}
			reads[re.Var] = re
			readOrder = append(readOrder, re.Var)
		}
		for _, v := range n.WriteSet() {
			writtenLocally[v] = true
			if !writes[v] {
				writes[v] = true
				writeOrder = append(writeOrder, v)
			}
		}
	}

	out := make([]ReadEntry, 0, len(readOrder))
	for _, v := range readOrder {
		out = append(out, reads[v])
	}
	outWrites := make([]*variable.Var, 0, len(writeOrder))
	outWrites = append(outWrites, writeOrder...)
	return out, outWrites
}
