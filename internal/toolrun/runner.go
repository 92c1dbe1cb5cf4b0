// Package toolrun is the only channel from the calibration pipeline to
// external executables: the PEST checkers, the PEST engine, the weight
// rebalancer, the simulation-line filler and the artifact generator.
package toolrun

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"pestcal/internal/logging"
)

// Runner starts a tool with a literal argument vector and blocks until it exits.
// err is non-nil only when the process could not be started or waited on; a
// process that ran and exited nonzero returns its status with a nil err.
type Runner interface {
	Invoke(ctx context.Context, tool string, args []string) (exitStatus int, err error)
}

// DefaultTailSize bounds the output kept for diagnostics.
const DefaultTailSize = 4096

// ExecRunner runs tools directly (no shell) with os/exec.
type ExecRunner struct {
	// Dir is the working directory; empty inherits the caller's.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// Output receives the combined stdout and stderr stream. Nil discards it.
	Output io.Writer
	// TailSize is the number of trailing output bytes kept per invocation.
	TailSize int

	mu   sync.Mutex
	tail *tailBuffer
}

// NewExecRunner returns a runner streaming tool output to out.
func NewExecRunner(out io.Writer) *ExecRunner {
	return &ExecRunner{Output: out, TailSize: DefaultTailSize}
}

// Invoke implements Runner.
func (r *ExecRunner) Invoke(ctx context.Context, tool string, args []string) (int, error) {
	logger := logging.New("toolrun")
	logger.Info("executing", "command", CommandLine(tool, args))

	size := r.TailSize
	if size <= 0 {
		size = DefaultTailSize
	}
	tail := newTailBuffer(size)
	r.mu.Lock()
	r.tail = tail
	r.mu.Unlock()

	var out io.Writer = tail
	if r.Output != nil {
		out = io.MultiWriter(r.Output, tail)
	}

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		logger.Warn("tool exited nonzero", "tool", tool, "status", exitErr.ExitCode())
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Tail returns the trailing output of the most recent invocation.
func (r *ExecRunner) Tail() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tail == nil {
		return ""
	}
	return r.tail.String()
}

// CommandLine renders tool and args the way they are logged.
func CommandLine(tool string, args []string) string {
	if len(args) == 0 {
		return tool
	}
	return tool + " " + strings.Join(args, " ")
}

// tailBuffer is an io.Writer that keeps only the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
