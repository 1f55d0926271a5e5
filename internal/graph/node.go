// Package graph defines the static graph model: the directed graph of
// task nodes linked by logical variables that the user builds once and
// hands to a scheduler. Nodes never run themselves -- the scheduler
// drives execution through the Executable interface, on the executor
// contract defined in internal/executor.
package graph

import (
	"context"

	"github.com/agraph/flow/internal/variable"
)

// ReadEntry names one variable a node's body may read, together with
// whether the access is read-only. ReadOnly is only meaningful when
// Var.IsMutable(); for value-only variables it is ignored.
type ReadEntry struct {
	Var      *variable.Var
	ReadOnly bool
}

// Read builds a read-write ReadEntry (the default: a bare mutable
// variable implies writer intent, per spec.md §4.3).
func Read(v *variable.Var) ReadEntry {
	return ReadEntry{Var: v}
}

// ReadOnly builds a read-only ReadEntry, the Go-level equivalent of
// wrapping a variable in variable.ReadOnly at the task boundary.
func ReadOnly(v *variable.Var) ReadEntry {
	return ReadEntry{Var: v, ReadOnly: true}
}

// Node is the common static-graph interface. Every concrete kind
// (LLMNode, SyncNode, NestedNode, BranchNode, VarWaitNode) embeds base
// for its successor-edge bookkeeping and implements ReadSet/WriteSet.
type Node interface {
	ReadSet() []ReadEntry
	WriteSet() []*variable.Var
	Next(i int) Node
	SetNext(i int, n Node)
}

// Executable is implemented by node kinds whose body the executor
// actually runs (LLM and sync/"python agent" nodes). Nested and branch
// nodes have no body of their own -- scheduling them means either
// recursing into a child scheduler or picking a successor edge.
type Executable interface {
	Execute(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error)
}

// base implements the successor-edge plumbing shared by every node
// kind, mirroring the original draft's GraphNode._next list.
type base struct {
	next [2]Node
}

func (b *base) Next(i int) Node { return b.next[i] }

func (b *base) SetNext(i int, n Node) { b.next[i] = n }
