// Package tools selects, for a given task, which tools an LLM node may
// call. Generalized from the teacher's internal/mcp MCP-server router:
// instead of selecting MCP servers for a coding-agent task, it selects
// tool groups for a graph.LLMNode, where a tool may carry a bound
// mutable variable (a side effect the call can perform, per spec.md's
// scenario S4) in addition to its description.
package tools

import (
	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// ToolSet is a named, priority-ordered group of tools a router selects
// or rejects as a unit -- the generalization of the teacher's
// MCPServer.
type ToolSet struct {
	Name       string   `yaml:"name" json:"name"`
	Tools      []Tool   `yaml:"tools" json:"tools"`
	ToolCount  int      `yaml:"tool_count" json:"tool_count"`
	Categories []string `yaml:"categories" json:"categories"`
	Priority   int      `yaml:"priority" json:"priority"`
	Enabled    bool     `yaml:"enabled" json:"enabled"`
}

// Tool is a single callable an LLM node may invoke. MutableVar is
// non-nil when invoking Fn can read or write a mutable object already
// live in the graph (e.g. a shared registry); Write reports whether
// the call may mutate it, matching the read/write distinction
// graph.ReadEntry uses elsewhere. Fn is the handler actually dispatched
// when the model names this tool, grounded on the original draft's
// ToolsReflect handlers dict (core/toollist.py); it is nil for
// informational tools the router selects but never invokes itself.
type Tool struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Set         string `yaml:"set" json:"set"` // parent ToolSet name

	MutableVar *variable.Var  `yaml:"-" json:"-"`
	Write      bool           `yaml:"-" json:"-"`
	Fn         graph.ToolFunc `yaml:"-" json:"-"`
}

// Task describes the work an LLM node is about to perform, for routing
// purposes.
type Task struct {
	ID          string
	Title       string
	Description string
}

// RoutingResult is the outcome of a routing decision.
type RoutingResult struct {
	Task          Task      `json:"task"`
	SelectedSets  []ToolSet `json:"selected_sets"`
	MatchedRules  []string  `json:"matched_rules"`
	TotalTools    int       `json:"total_tools"`
	FilteredTools int       `json:"filtered_tools"`
}

// Tools flattens the selected sets into their member tools.
func (r *RoutingResult) Tools() []Tool {
	out := make([]Tool, 0, r.TotalTools)
	for _, s := range r.SelectedSets {
		out = append(out, s.Tools...)
	}
	return out
}

// MutableReads returns the graph.ReadEntry-shaped bindings the
// selected tools imply (a (*variable.Var, write) pair per tool that
// carries one), for graph.LLMAgent's toolMutables parameter. It stays a
// plain slice of (var, write) pairs rather than graph.ReadEntry itself
// so BindLLMAgent keeps the Read/ReadOnly conversion (and thus the
// graph.ReadEntry construction) in one place.
func (r *RoutingResult) MutableReads() []MutableBinding {
	out := make([]MutableBinding, 0)
	for _, t := range r.Tools() {
		if t.MutableVar == nil {
			continue
		}
		out = append(out, MutableBinding{Var: t.MutableVar, Write: t.Write})
	}
	return out
}

// MutableBinding names a mutable a selected tool may access.
type MutableBinding struct {
	Var   *variable.Var
	Write bool
}
