// Package localexec runs python-agent commands as local subprocesses,
// restricted to a strict allowlist. Grounded on the teacher's
// internal/connectors/localexec.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/agraph/flow/internal/pyagent"
)

// allowedCommands is the strict allowlist of executable commands and
// their permitted subcommands.
var allowedCommands = map[string][]string{
	"go":     {"test", "build", "vet"},
	"git":    {"diff", "status", "log"},
	"python": {"-c"},
}

// LocalExec implements pyagent.Runner by spawning a local subprocess.
type LocalExec struct {
	workDir string
}

// New creates a LocalExec rooted at workDir.
func New(workDir string) *LocalExec {
	return &LocalExec{workDir: workDir}
}

func (l *LocalExec) Name() string { return "localexec" }

// IsAllowed reports whether cmd's first argument is an allowed
// subcommand.
func (l *LocalExec) IsAllowed(cmd string, args []string) bool {
	allowedSubcmds, ok := allowedCommands[cmd]
	if !ok || len(args) == 0 {
		return false
	}
	subcmd := args[0]
	for _, allowed := range allowedSubcmds {
		if subcmd == allowed {
			return true
		}
	}
	return false
}

// Execute runs cmd if it passes IsAllowed.
func (l *LocalExec) Execute(ctx context.Context, cmd string, args []string) (*pyagent.Result, error) {
	if !l.IsAllowed(cmd, args) {
		return nil, fmt.Errorf("pyagent: command not allowed: %s %s", cmd, strings.Join(args, " "))
	}

	execCmd := exec.CommandContext(ctx, cmd, args...)
	if l.workDir != "" {
		execCmd.Dir = l.workDir
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("pyagent: exec error: %w", err)
		}
	}

	return &pyagent.Result{
		Command:  cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
