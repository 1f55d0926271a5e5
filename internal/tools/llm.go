package tools

import (
	"context"

	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// BindLLMAgent routes task through router and builds a graph.LLMAgent
// whose read set already includes every mutable a selected tool may
// touch, so the scheduler enforces ownership/scoreboard rules for tool
// side effects exactly as it would for a direct mutable argument (the
// Go-native answer to spec.md's scenario S4).
func BindLLMAgent(ctx context.Context, router Router, task Task, outVar, convVar *variable.Var, model graph.Model, format graph.FormatFunc, args ...graph.ReadEntry) (graph.Pair, *RoutingResult, error) {
	result, err := router.Route(ctx, task)
	if err != nil {
		return graph.Pair{}, nil, err
	}

	toolEntries := make([]graph.ReadEntry, 0)
	toolNames := make([]string, 0)
	toolFns := make(map[string]graph.ToolFunc)
	for _, t := range result.Tools() {
		toolNames = append(toolNames, t.Name)
		if t.Fn != nil {
			toolFns[t.Name] = t.Fn
		}
	}
	for _, b := range result.MutableReads() {
		toolEntries = append(toolEntries, graph.ReadEntry{Var: b.Var, ReadOnly: !b.Write})
	}

	pair := graph.LLMAgent(outVar, convVar, model, format, toolNames, toolEntries, toolFns, args...)
	return pair, result, nil
}
