// Package process runs external commands and captures their output.
//
// Every subprocess the harness starts (the build, both compilers, the native
// artifact and the runtime) goes through a Runner. The real implementation,
// ExecRunner, bounds each child by a context and an optional timeout and
// kills the child's whole process group when either expires.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a child outlives the runner's timeout.
var ErrTimeout = errors.New("process timed out")

// waitDelay bounds how long Wait blocks on output pipes after the child has
// been killed or has exited.
const waitDelay = 2 * time.Second

// Command describes one subprocess invocation.
type Command struct {
	// Path is the executable. Bare names are looked up in PATH.
	Path string

	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the inherited environment.
	Env []string

	// Stdout and Stderr, when set, receive a live copy of the output.
	// The Result still carries the full captured text.
	Stdout io.Writer
	Stderr io.Writer
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result is the observable outcome of a finished child.
type Result struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Runner executes a command and waits for it to exit.
//
// A non-zero exit is not an error: it is reported in Result.ExitCode.
// Errors mean the child could not be started, timed out, or was cancelled.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each child. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewExecRunner returns a runner with the given per-child timeout.
func NewExecRunner(timeout time.Duration, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ExecRunner{Timeout: timeout, Logger: logger}
}

// Run starts c, waits for it and captures its output.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = tee(&stdout, c.Stdout)
	cmd.Stderr = tee(&stderr, c.Stderr)
	cmd.WaitDelay = waitDelay
	configure(cmd)

	logger.Debug("starting process", "argv", c.Argv(), "dir", c.Dir)

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		res.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			logger.Warn("process timed out", "argv", c.Argv(), "timeout", r.Timeout)
			return res, fmt.Errorf("%s: %w after %s", c.Path, ErrTimeout, res.Duration.Round(time.Millisecond))
		}
		return res, fmt.Errorf("%s: %w", c.Path, ctxErr)
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(err, exec.ErrWaitDelay):
		// The child exited but left its output pipes open in a descendant.
		res.ExitCode = exitCode(cmd.ProcessState)
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			res.ExitCode = -1
			return res, fmt.Errorf("failed to start %s: %w", c.Path, err)
		}
		res.ExitCode = exitCode(exitErr.ProcessState)
	}

	logger.Debug("process exited", "argv", c.Argv(), "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
