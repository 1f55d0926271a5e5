package scheduler

import (
	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// taskNode is one entry in a scheduler's FIFO of top-level tasks
// submitted via AddTask, grounded on the original draft's TaskNode.
type taskNode struct {
	node   graph.Node
	varMap map[*variable.Var]any
	next   *taskNode
}
