// Package toolchain drives the external collaborators of a differential
// test: the build of the compiler under test, the reference and
// under-test compilers, the native executable and the target runtime.
//
// All subprocesses go through a process.Runner, so the package can be
// exercised without a real compiler.
package toolchain

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// Builder builds the compiler under test.
type Builder interface {
	// Build runs the build command and returns its exit code. The error
	// is non-nil only when the command could not be run to completion.
	Build(ctx context.Context) (int, error)
}

// Compilers produces the artifact pair for one test.
type Compilers interface {
	CompileReference(ctx context.Context, source, name string) (CompileResult, error)
	CompileUnderTest(ctx context.Context, source, name string, flags []string) (CompileResult, error)
}

// Executor runs the artifact pair for one test.
type Executor interface {
	RunNative(ctx context.Context, name string, args []string) (process.Result, error)
	RunTarget(ctx context.Context, name string, args []string) (process.Result, error)
}

// Pipeline is everything the harness needs from the toolchain.
type Pipeline interface {
	Builder
	Compilers
	Executor
	Artifacts() Artifacts
}

// Toolchain implements Pipeline on top of a process.Runner.
type Toolchain struct {
	cfg       *config.Config
	runner    process.Runner
	logger    *slog.Logger
	artifacts Artifacts

	// BuildStdout and BuildStderr receive the build's output as it is
	// produced. They default to the process's own stdout and stderr.
	BuildStdout io.Writer
	BuildStderr io.Writer
}

// New creates a toolchain for cfg.
func New(cfg *config.Config, runner process.Runner, logger *slog.Logger) *Toolchain {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Toolchain{
		cfg:         cfg,
		runner:      runner,
		logger:      logger,
		artifacts:   Artifacts{BuildDir: cfg.BuildDir},
		BuildStdout: os.Stdout,
		BuildStderr: os.Stderr,
	}
}

// Artifacts returns the artifact layout of this toolchain.
func (t *Toolchain) Artifacts() Artifacts {
	return t.artifacts
}

// FlagArgs renders compiler flag names as command-line switches:
// "emit-ir" becomes "--emit-ir".
func FlagArgs(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, "--"+f)
	}
	return out
}
