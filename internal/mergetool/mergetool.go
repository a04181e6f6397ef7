// Package mergetool finds and launches the operator's external merge tool.
package mergetool

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Runner interface {
	// Output runs a command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Run runs a command attached to the operator's terminal and waits for it.
	Run(ctx context.Context, name string, args ...string) error
}

type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

type Launcher struct {
	runner Runner
	tool   string
}

// New resolves the tool once: override wins, otherwise git's merge.tool. A
// missing git or an unset merge.tool leaves the launcher without a tool.
func New(ctx context.Context, runner Runner, override string) *Launcher {
	return &Launcher{runner: runner, tool: Lookup(ctx, runner, override)}
}

func Lookup(ctx context.Context, runner Runner, override string) string {
	if tool := strings.TrimSpace(override); tool != "" {
		return tool
	}

	out, err := runner.Output(ctx, "git", "config", "merge.tool")
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(out))
}

func (l *Launcher) Tool() string {
	if l == nil {
		return ""
	}
	return l.tool
}

func (l *Launcher) Available() bool {
	return l.Tool() != ""
}

// Merge runs the tool with the original and the conflict as arguments and
// blocks until it exits.
func (l *Launcher) Merge(ctx context.Context, original, conflict string) error {
	if !l.Available() {
		return fmt.Errorf("no merge tool configured")
	}

	if err := l.runner.Run(ctx, l.tool, original, conflict); err != nil {
		return fmt.Errorf("merge tool %s failed: %w", l.tool, err)
	}

	return nil
}
