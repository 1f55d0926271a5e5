package graph

import (
	"context"
	"testing"

	"github.com/agraph/flow/internal/variable"
)

func noopSync(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
	return nil, nil
}

func TestPairThenWiresSuccessorEdge(t *testing.T) {
	a := variable.New("a")
	b := variable.New("b")

	p1 := PythonAgent([]*variable.Var{a}, noopSync)
	p2 := PythonAgent([]*variable.Var{b}, noopSync)

	combined := p1.Then(p2)

	if combined.Start != p1.Start {
		t.Fatal("Then should keep the first fragment's Start")
	}
	if combined.End != p2.End {
		t.Fatal("Then should adopt the second fragment's End")
	}
	if p1.End.Next(0) != p2.Start {
		t.Fatal("Then should wire p1.End's next(0) edge to p2.Start")
	}
}

func TestSequenceChainsInOrder(t *testing.T) {
	a := variable.New("a")
	b := variable.New("b")
	c := variable.New("c")

	p1 := PythonAgent([]*variable.Var{a}, noopSync)
	p2 := PythonAgent([]*variable.Var{b}, noopSync)
	p3 := PythonAgent([]*variable.Var{c}, noopSync)

	seq := Sequence(p1, p2, p3)

	if seq.Start != p1.Start {
		t.Fatal("Sequence should start at the first fragment")
	}
	if p1.Start.Next(0) != p2.Start {
		t.Fatal("Sequence should wire p1 -> p2")
	}
	if p2.Start.Next(0) != p3.Start {
		t.Fatal("Sequence should wire p2 -> p3")
	}
	if seq.End != p3.End {
		t.Fatal("Sequence should end at the last fragment")
	}
}

func TestSequencePanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Sequence with no fragments should panic")
		}
	}()
	Sequence()
}

func TestAnalyzeLinearDropsLocallyWrittenReads(t *testing.T) {
	a := variable.New("a")
	b := variable.New("b")

	// p1 writes a, p2 reads a (locally produced -- should not appear as
	// an external read) and writes b.
	p1 := PythonAgent([]*variable.Var{a}, noopSync)
	p2 := PythonAgent([]*variable.Var{b}, noopSync, Read(a))

	chain := Sequence(p1, p2)
	reads, writes := analyzeLinear(chain.Start)

	for _, re := range reads {
		if re.Var == a {
			t.Fatal("a is written locally by p1; it must not appear in the chain's external read set")
		}
	}
	if len(writes) != 2 || writes[0] != a || writes[1] != b {
		t.Fatalf("expected write order [a, b], got %v", writes)
	}
}

func TestAnalyzeLinearKeepsExternalReads(t *testing.T) {
	ext := variable.New("ext")
	out := variable.New("out")

	p := PythonAgent([]*variable.Var{out}, noopSync, Read(ext))
	reads, _ := analyzeLinear(p.Start)

	if len(reads) != 1 || reads[0].Var != ext {
		t.Fatalf("expected external read of ext to survive, got %v", reads)
	}
}

func TestAnalyzeLinearUpgradesReadOnlyToWriteOnSecondReference(t *testing.T) {
	m := variable.NewMutable("m")
	out := variable.New("out")

	p1 := PythonAgent([]*variable.Var{out}, noopSync, ReadOnly(m))
	p2 := PythonAgent([]*variable.Var{out}, noopSync, Read(m))
	chain := Sequence(p1, p2)

	reads, _ := analyzeLinear(chain.Start)
	if len(reads) != 1 {
		t.Fatalf("expected a single merged read entry for m, got %d", len(reads))
	}
	if reads[0].ReadOnly {
		t.Fatal("a later read-write reference should upgrade the chain's effective access to writer")
	}
}

func TestNestedPrecomputesReadWriteSets(t *testing.T) {
	ext := variable.New("ext")
	out := variable.New("out")

	child := PythonAgent([]*variable.Var{out}, noopSync, Read(ext))
	n := Nested(child)

	if len(n.Start.ReadSet()) != 1 || n.Start.ReadSet()[0].Var != ext {
		t.Fatalf("Nested should precompute ReadSet from analyzeLinear, got %v", n.Start.ReadSet())
	}
	if len(n.Start.WriteSet()) != 1 || n.Start.WriteSet()[0] != out {
		t.Fatalf("Nested should precompute WriteSet from analyzeLinear, got %v", n.Start.WriteSet())
	}
}

func TestBranchNodeResolve(t *testing.T) {
	cond := variable.New("cond")
	thenBranch := PythonAgent(nil, noopSync)
	elseBranch := PythonAgent(nil, noopSync)

	n := &BranchNode{Cond: cond}
	n.SetNext(0, thenBranch.Start)
	n.SetNext(1, elseBranch.Start)

	if n.Resolve(true) != thenBranch.Start {
		t.Fatal("Resolve(true) should pick next(0)")
	}
	if n.Resolve(false) != elseBranch.Start {
		t.Fatal("Resolve(false) should pick next(1)")
	}
}

func TestVarWaitReadSet(t *testing.T) {
	target := variable.NewMutable("m")
	p := VarWait(target, true)

	rs := p.Start.ReadSet()
	if len(rs) != 1 || rs[0].Var != target || !rs[0].ReadOnly {
		t.Fatalf("VarWait(target, true) should produce a single read-only ReadEntry, got %v", rs)
	}
}

func TestSyncNodeExecuteDelegatesToBody(t *testing.T) {
	out := variable.New("out")
	called := false
	body := func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		called = true
		return map[*variable.Var]any{out: 1}, nil
	}
	n := &SyncNode{Out: []*variable.Var{out}, Body: body}

	result, err := n.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("Execute should call Body")
	}
	if result[out] != 1 {
		t.Fatalf("result[out] = %v, want 1", result[out])
	}
}

type stubModel struct {
	reply string
	calls []ToolCall
	err   error
}

func (m stubModel) SendData(ctx context.Context, messages []Message, tools []string) (string, []ToolCall, error) {
	return m.reply, m.calls, m.err
}

func TestLLMNodeExecuteFormatsAndCallsModel(t *testing.T) {
	outVar := variable.New("reply")
	arg := variable.New("prompt")

	n := &LLMNode{
		OutVar: outVar,
		Model:  stubModel{reply: "hello"},
		Format: func(in map[*variable.Var]any) ([]Message, error) {
			return []Message{{Role: "user", Content: in[arg].(string)}}, nil
		},
		Args: []ReadEntry{Read(arg)},
	}

	out, err := n.Execute(context.Background(), map[*variable.Var]any{arg: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[outVar] != "hello" {
		t.Fatalf("out[outVar] = %v, want %q", out[outVar], "hello")
	}
}

func TestLLMNodeExecuteDispatchesToolCalls(t *testing.T) {
	outVar := variable.New("reply")
	var gotArgs map[string]any

	n := &LLMNode{
		OutVar: outVar,
		Model: stubModel{
			reply: "ok",
			calls: []ToolCall{{Name: "reg.set_value", Args: map[string]any{"num": 7}}},
		},
		Format: func(in map[*variable.Var]any) ([]Message, error) { return nil, nil },
		ToolFns: map[string]ToolFunc{
			"reg.set_value": func(ctx context.Context, args map[string]any) (any, error) {
				gotArgs = args
				return nil, nil
			},
		},
	}

	if _, err := n.Execute(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs["num"] != 7 {
		t.Fatalf("tool received args %v, want num=7", gotArgs)
	}
}

func TestLLMNodeExecuteErrorsOnUnroutedToolCall(t *testing.T) {
	n := &LLMNode{
		OutVar: variable.New("reply"),
		Model: stubModel{
			reply: "ok",
			calls: []ToolCall{{Name: "not.routed"}},
		},
		Format: func(in map[*variable.Var]any) ([]Message, error) { return nil, nil },
	}

	if _, err := n.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected an error when the model calls a tool with no registered ToolFn")
	}
}

func TestLLMAgentIncludesToolMutablesInReadSet(t *testing.T) {
	outVar := variable.New("reply")
	toolMut := variable.NewMutable("registry")

	p := LLMAgent(outVar, nil, stubModel{}, func(in map[*variable.Var]any) ([]Message, error) {
		return nil, nil
	}, []string{"search"}, []ReadEntry{Read(toolMut)}, nil)

	rs := p.Start.ReadSet()
	found := false
	for _, re := range rs {
		if re.Var == toolMut {
			found = true
		}
	}
	if !found {
		t.Fatal("LLMAgent should fold toolMutables into the node's read set")
	}
	if len(p.Start.(*LLMNode).ToolMutables()) != 1 {
		t.Fatal("ToolMutables() should report the toolMutables entries separately from Args")
	}
}
