package pyagent

import (
	"context"
	"fmt"

	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// Command builds a graph.SyncFunc that runs cmd/args on runner and
// reports the result under outVar, for wiring a Runner into a
// graph.PythonAgent node.
func Command(runner Runner, cmd string, args []string, outVar *variable.Var) graph.SyncFunc {
	return func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		result, err := runner.Execute(ctx, cmd, args)
		if err != nil {
			return nil, fmt.Errorf("pyagent: %s: %w", runner.Name(), err)
		}
		return map[*variable.Var]any{outVar: result}, nil
	}
}
