// Package run invokes external tools and reports their outcome as a value.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/bugdom/gamesetup/internal/logging"
	"go.uber.org/zap"
)

// Result is the outcome of one external invocation.
type Result struct {
	Command  []string
	ExitCode int // -1 when the process could not be started
	Err      error
}

// OK reports whether the command ran and exited with status 0.
func (r Result) OK() bool { return r.Err == nil }

// Failure returns nil for a successful result, otherwise an error naming
// the command line.
func (r Result) Failure() error {
	if r.Err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", strings.Join(r.Command, " "), r.Err)
}

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// Exec runs commands as child processes.
type Exec struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Log    *zap.Logger
}

// NewExec returns an Exec that streams child output to the process's own
// stdout and stderr.
func NewExec(log *zap.Logger) *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr, Log: log}
}

// Run echoes the command line, runs it and waits for it.
func (e *Exec) Run(ctx context.Context, name string, args ...string) Result {
	res := Result{Command: append([]string{name}, args...)}
	stdout := e.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	fmt.Fprintln(stdout, ">", strings.Join(res.Command, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	cmd.Stdout = stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		res.Err = err
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if e.Log != nil {
			e.Log.Error(logging.Highlight("Subprocess failed!"),
				zap.Strings("command", res.Command),
				zap.Int("exit_code", res.ExitCode),
				zap.Error(err))
		}
	}
	return res
}
