package toolchain

import (
	"context"
	"fmt"
	"os"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// CompileResult is the outcome of one compilation.
type CompileResult struct {
	// Diagnostics is the compiler's captured output, shown on failure only.
	Diagnostics string `json:"diagnostics"`
	ExitCode    int    `json:"exit_code"`
}

// OK reports whether the compiler exited with status zero.
func (r CompileResult) OK() bool {
	return r.ExitCode == 0
}

// CompileReference compiles source with the reference compiler into the
// native artifact for name. Diagnostics are taken from stdout.
func (t *Toolchain) CompileReference(ctx context.Context, source, name string) (CompileResult, error) {
	if err := t.artifacts.Ensure(); err != nil {
		return CompileResult{ExitCode: -1}, err
	}

	c := process.Command{
		Path: t.cfg.ReferenceCompiler,
		Args: []string{source, "-o", t.artifacts.Native(name)},
	}
	t.logger.Debug("compiling reference", "test", name, "command", c.String())

	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return CompileResult{Diagnostics: res.Stdout, ExitCode: res.ExitCode}, fmt.Errorf("reference compile: %w", err)
	}
	return CompileResult{Diagnostics: res.Stdout, ExitCode: res.ExitCode}, nil
}

// CompileUnderTest compiles source with the compiler under test into the
// target artifact for name. flags are appended after the output path.
// Diagnostics are taken from stderr, where the compiler writes its log.
func (t *Toolchain) CompileUnderTest(ctx context.Context, source, name string, flags []string) (CompileResult, error) {
	if err := t.artifacts.Ensure(); err != nil {
		return CompileResult{ExitCode: -1}, err
	}

	args := append([]string{source, "-o", t.artifacts.Target(name)}, flags...)
	c := process.Command{
		Path: t.cfg.CompilerPath,
		Args: args,
		Env:  t.cfg.CompilerEnv,
	}
	t.logger.Debug("compiling under test", "test", name, "command", c.String())

	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return CompileResult{Diagnostics: res.Stderr, ExitCode: res.ExitCode}, fmt.Errorf("compile: %w", err)
	}
	return CompileResult{Diagnostics: res.Stderr, ExitCode: res.ExitCode}, nil
}

// Ensure creates the build directory if it does not exist.
func (a Artifacts) Ensure() error {
	if err := os.MkdirAll(a.BuildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	return nil
}
