package graph

import (
	"context"
	"fmt"

	"github.com/agraph/flow/internal/variable"
)

// Message is one turn in a conversation sent to a model backend.
type Message struct {
	Role    string
	Content string
}

// ToolCall is one tool invocation a model's reply asked for, alongside
// its text content. Grounded on the original draft's ResponseObj
// (core/llmmodel.py), whose chat-completion response carries both
// content and tool_calls on the same message.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolFunc is the callable body behind one routed tool name, grounded
// on the original draft's ToolsReflect handlers dict (tool name ->
// Python callable) in core/toollist.py. A tool's Fn typically closes
// over a *mutable.Mutable-backed domain object; LLMNode.ToolMutables
// is what gets that mutable into the node's read set so the scheduler
// orders the call against other access to it (spec.md scenario S4).
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Model is the narrow interface an LLMNode needs from a model backend.
// internal/modelclient.Client satisfies it; tests can supply a stub.
type Model interface {
	SendData(ctx context.Context, messages []Message, tools []string) (reply string, calls []ToolCall, err error)
}

// FormatFunc builds the message list to send to the model from the
// node's resolved input values, keyed by the same *variable.Var the
// node declared in its Args.
type FormatFunc func(in map[*variable.Var]any) ([]Message, error)

// LLMNode is an asynchronous task whose body is a single remote-model
// call, grounded on the original draft's GraphLLMAgent. Unlike a
// SyncNode it never blocks an OS thread: the executor runs it on the
// async event-loop pool.
type LLMNode struct {
	base

	OutVar  *variable.Var
	ConvVar *variable.Var // optional: conversation history, nil if none

	Model   Model
	Format  FormatFunc
	Tools   []string // tool names offered to the model, for routing/logging
	ToolFns map[string]ToolFunc

	Args         []ReadEntry
	toolMutables []ReadEntry
}

// LLMAgent builds a graph.Pair wrapping a single LLMNode. convVar may be
// nil. toolMutables lets the caller declare mutables that bound tools
// may read or write, so they land in the node's read set even though
// the model call itself never touches them directly -- toolFns is the
// handler dispatched when the model's reply names one of toolNames
// (see internal/tools's router, which computes both from the selected
// tool catalog).
func LLMAgent(outVar, convVar *variable.Var, model Model, format FormatFunc, toolNames []string, toolMutables []ReadEntry, toolFns map[string]ToolFunc, args ...ReadEntry) Pair {
	n := &LLMNode{
		OutVar:       outVar,
		ConvVar:      convVar,
		Model:        model,
		Format:       format,
		Tools:        toolNames,
		ToolFns:      toolFns,
		Args:         append(append([]ReadEntry{}, args...), toolMutables...),
		toolMutables: append([]ReadEntry{}, toolMutables...),
	}
	return Pair{Start: n, End: n}
}

// ToolMutables returns the mutables this node's routed tools may read
// or write, as distinct from the caller's own args -- the set
// spec.md's scenario S4 requires the scheduler to fold into refs.
func (n *LLMNode) ToolMutables() []ReadEntry {
	return n.toolMutables
}

func (n *LLMNode) ReadSet() []ReadEntry {
	out := append([]ReadEntry{}, n.Args...)
	if n.ConvVar != nil {
		out = append(out, Read(n.ConvVar))
	}
	return out
}

func (n *LLMNode) WriteSet() []*variable.Var {
	return []*variable.Var{n.OutVar}
}

// Execute runs the model call, dispatches any tool calls the reply
// asked for to their registered ToolFns, and returns {OutVar: result}.
func (n *LLMNode) Execute(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
	msgs, err := n.Format(in)
	if err != nil {
		return nil, err
	}
	reply, calls, err := n.Model.SendData(ctx, msgs, n.Tools)
	if err != nil {
		return nil, err
	}
	for _, call := range calls {
		fn, ok := n.ToolFns[call.Name]
		if !ok {
			return nil, fmt.Errorf("graph: model requested unrouted tool %q", call.Name)
		}
		if _, err := fn(ctx, call.Args); err != nil {
			return nil, fmt.Errorf("graph: tool %q failed: %w", call.Name, err)
		}
	}
	return map[*variable.Var]any{n.OutVar: reply}, nil
}
