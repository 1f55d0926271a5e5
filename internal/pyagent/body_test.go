package pyagent

import (
	"context"
	"errors"
	"testing"

	"github.com/agraph/flow/internal/variable"
)

type stubRunner struct {
	name   string
	result *Result
	err    error
}

func (s stubRunner) Name() string { return s.name }
func (s stubRunner) Execute(ctx context.Context, cmd string, args []string) (*Result, error) {
	return s.result, s.err
}
func (s stubRunner) IsAllowed(cmd string, args []string) bool { return true }

func TestCommandReportsResultUnderOutVar(t *testing.T) {
	outVar := variable.New("out")
	runner := stubRunner{name: "stub", result: &Result{Command: "go", ExitCode: 0, Stdout: "ok"}}

	body := Command(runner, "go", []string{"vet"}, outVar)
	out, err := body(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, ok := out[outVar].(*Result)
	if !ok {
		t.Fatalf("expected out[outVar] to be *Result, got %T", out[outVar])
	}
	if result.Stdout != "ok" {
		t.Fatalf("Stdout = %q, want %q", result.Stdout, "ok")
	}
}

func TestCommandWrapsRunnerError(t *testing.T) {
	outVar := variable.New("out")
	runner := stubRunner{name: "stub", err: errors.New("boom")}

	body := Command(runner, "go", []string{"vet"}, outVar)
	_, err := body(context.Background(), nil)
	if err == nil {
		t.Fatal("expected Command's body to propagate the runner's error")
	}
}
