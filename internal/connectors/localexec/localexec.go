// Package localexec provides a local command executor with an allowlist.
package localexec

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/connectors"
)

// ErrNotAllowed is returned for commands outside the allowlist.
var ErrNotAllowed = errors.New("command not allowed")

// DefaultAllowlist maps each executable to the subcommands it may run.
// An empty subcommand list allows any first argument.
func DefaultAllowlist() map[string][]string {
	return map[string][]string{
		"go": {"run", "test", "vet", "build"},
	}
}

// LocalExec implements the Connector interface for local command execution.
type LocalExec struct {
	workDir string
	allowed map[string][]string
}

// New creates a new LocalExec connector. A nil allowlist uses DefaultAllowlist.
func New(workDir string, allowlist map[string][]string) *LocalExec {
	if allowlist == nil {
		allowlist = DefaultAllowlist()
	}
	return &LocalExec{workDir: workDir, allowed: allowlist}
}

// Name returns the connector identifier.
func (l *LocalExec) Name() string {
	return "localexec"
}

// IsAllowed checks if a command is in the allowlist.
func (l *LocalExec) IsAllowed(cmd string, args []string) bool {
	allowedSubcmds, ok := l.allowed[cmd]
	if !ok {
		return false
	}
	if len(allowedSubcmds) == 0 {
		return true
	}
	if len(args) == 0 {
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

// Execute runs a command if it's in the allowlist. A non-zero exit is a
// result, not an error; errors mean the command could not run at all.
func (l *LocalExec) Execute(ctx context.Context, cmd string, args []string) (*connectors.ExecResult, error) {
	if !l.IsAllowed(cmd, args) {
		return nil, errors.Wrapf(ErrNotAllowed, "%s %s", cmd, strings.Join(args, " "))
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
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			return nil, errors.Wrap(err, "exec error")
		}
	}

	return &connectors.ExecResult{
		Command:  cmd,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
