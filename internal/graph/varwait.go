package graph

import "github.com/agraph/flow/internal/variable"

// VarWaitNode is a synthetic node the scheduler splices in to implement
// read_variable/obj_access: a task that blocks until Target is
// available (and, for a mutable, until scoreboard access is granted)
// before letting its caller proceed. It carries no body of its own --
// the scheduler resolves it inline rather than dispatching it to an
// executor. Grounded on the original draft's GraphVarWait.
type VarWaitNode struct {
	base

	Target   *variable.Var
	ReadOnly bool
}

// VarWait builds a Pair wrapping a VarWaitNode.
func VarWait(target *variable.Var, readOnly bool) Pair {
	n := &VarWaitNode{Target: target, ReadOnly: readOnly}
	return Pair{Start: n, End: n}
}

func (n *VarWaitNode) ReadSet() []ReadEntry {
	return []ReadEntry{{Var: n.Target, ReadOnly: n.ReadOnly}}
}

func (n *VarWaitNode) WriteSet() []*variable.Var { return nil }
