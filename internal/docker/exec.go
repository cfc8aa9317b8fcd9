package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// CommandRunner executes an external command and reports its exit code.
// It is the seam between the client and the real docker binary.
type CommandRunner interface {
	// Run executes argv with stdout and stderr inherited.
	Run(ctx context.Context, argv []string) int
	// RunQuiet executes argv with stdout discarded.
	RunQuiet(ctx context.Context, argv []string) int
	// Output executes argv and returns its captured stdout.
	Output(ctx context.Context, argv []string) (string, int)
}

// ExecRunner runs commands through os/exec, blocking until the child exits
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv []string) int {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return exitCode(cmd.Run())
}

func (ExecRunner) RunQuiet(ctx context.Context, argv []string) int {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	return exitCode(cmd.Run())
}

func (ExecRunner) Output(ctx context.Context, argv []string) (string, int) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard
	code := exitCode(cmd.Run())
	return stdout.String(), code
}

// exitCode maps a Run error to the child's exit code. Failures to start the
// child at all (binary missing, permission denied) report 127.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	fmt.Fprintln(os.Stderr, err)
	return 127
}
