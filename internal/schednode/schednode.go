// Package schednode defines ScheduleNode, the runtime instance of a
// static graph node. The scheduler allocates one per graph node visited
// during a scan; its id fixes its order within the owning scope.
package schednode

import (
	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// Waiter is a downstream schedule node waiting on one of our output
// variables, paired with whether it wants read-only or write access to
// the value (relevant only when the value is a mutable).
type Waiter struct {
	Node     *Node
	IsReader bool
}

// ErrSentinel is the distinguished value forwarded to waiters of a
// variable whose producing task body raised an error. Tasks observing
// it must propagate it rather than try to use the value.
type ErrSentinel struct {
	Err error
}

// Node is the runtime instance of a graph.Node: one schedule node per
// visit during a scan, uniquely ordered by ID within its scope.
type Node struct {
	Graph graph.Node
	ID    int64

	DepCount int

	// InMap holds inputs already available at scan time (or forwarded
	// by a completed producer); OutMap is populated on completion.
	InMap  map[*variable.Var]any
	OutMap map[*variable.Var]any

	// WaitMap maps one of our output variables to the schedule nodes
	// waiting on it.
	WaitMap map[*variable.Var][]Waiter

	// Refs is the set of ownership-root mutables this instance has
	// registered against the scoreboard.
	Refs map[any]struct{}
}

// New allocates a schedule node for g with the given scope-unique id.
func New(g graph.Node, id int64) *Node {
	return &Node{
		Graph:   g,
		ID:      id,
		InMap:   make(map[*variable.Var]any),
		WaitMap: make(map[*variable.Var][]Waiter),
		Refs:    make(map[any]struct{}),
	}
}

// TaskID implements scoreboard.Task.
func (n *Node) TaskID() int64 { return n.ID }

// OwnerID implements mutable.TaskOwner.
func (n *Node) OwnerID() int64 { return n.ID }

// AddRef records that this instance will touch the ownership-root
// mutable `root`. Returns false if root was already registered (a
// duplicate reference through a second variable), matching the
// original draft's dedup-on-repeat-reference behavior.
func (n *Node) AddRef(root any) bool {
	if _, ok := n.Refs[root]; ok {
		return false
	}
	n.Refs[root] = struct{}{}
	return true
}

// SetDepCount sets the outstanding dependence count computed during
// scan.
func (n *Node) SetDepCount(c int) { n.DepCount = c }

// DecDepCount decrements the outstanding dependence count and reports
// whether it has reached zero (ready to fire).
func (n *Node) DecDepCount() bool {
	n.DepCount--
	return n.DepCount == 0
}

// AddWaiter registers that downstream wants our eventual value for var,
// either read-only or for writing.
func (n *Node) AddWaiter(v *variable.Var, downstream *Node, isReader bool) {
	n.WaitMap[v] = append(n.WaitMap[v], Waiter{Node: downstream, IsReader: isReader})
}

// SetIn records an already-available input value for var.
func (n *Node) SetIn(v *variable.Var, val any) {
	n.InMap[v] = val
}

// SetOut records the node's output map on completion.
func (n *Node) SetOut(out map[*variable.Var]any) {
	n.OutMap = out
}
