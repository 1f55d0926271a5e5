package graph

import (
	"context"

	"github.com/agraph/flow/internal/variable"
)

// SyncFunc is the opaque synchronous body of a SyncNode -- the "python
// agent" of spec.md, an arbitrary blocking function over resolved
// inputs. The scheduler never inspects its implementation; only its
// declared Args/Out determine scheduling.
type SyncFunc func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error)

// SyncNode is a synchronous task whose body may block an OS thread
// (filesystem, CPU-bound work, a subprocess). The executor runs it on
// the dedicated thread pool rather than the async event loop, per
// spec.md §5. Grounded on the original draft's GraphPythonAgent.
type SyncNode struct {
	base

	Out  []*variable.Var
	Body SyncFunc
	Args []ReadEntry
}

// PythonAgent builds a graph.Pair wrapping a single SyncNode.
func PythonAgent(out []*variable.Var, body SyncFunc, args ...ReadEntry) Pair {
	n := &SyncNode{Out: out, Body: body, Args: args}
	return Pair{Start: n, End: n}
}

func (n *SyncNode) ReadSet() []ReadEntry { return n.Args }

func (n *SyncNode) WriteSet() []*variable.Var { return n.Out }

func (n *SyncNode) Execute(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
	return n.Body(ctx, in)
}
