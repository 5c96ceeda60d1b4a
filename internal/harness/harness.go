package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/discovery"
	"github.com/martin-walls/wasm-testsuite/internal/fingerprint"
	"github.com/martin-walls/wasm-testsuite/internal/oracle"
	"github.com/martin-walls/wasm-testsuite/internal/process"
	"github.com/martin-walls/wasm-testsuite/internal/report"
	"github.com/martin-walls/wasm-testsuite/internal/spec"
	"github.com/martin-walls/wasm-testsuite/internal/toolchain"
)

// Options selects and parameterises the tests of one invocation.
type Options struct {
	// Filter is a substring of the test name. Empty selects every test.
	Filter string

	// CompilerFlags are appended to the compiler-under-test command line,
	// already rendered as switches (see toolchain.FlagArgs).
	CompilerFlags []string

	// ProgramArgs replace each spec's args in interactive mode when
	// non-empty. Batches always use the spec's args.
	ProgramArgs []string
}

// Harness evaluates specs against a toolchain.
type Harness struct {
	cfg      *config.Config
	pipeline toolchain.Pipeline
	reporter *report.Reporter
	logger   *slog.Logger
}

// New creates a harness.
func New(cfg *config.Config, pipeline toolchain.Pipeline, reporter *report.Reporter, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Harness{
		cfg:      cfg,
		pipeline: pipeline,
		reporter: reporter,
		logger:   logger,
	}
}

// Discover loads every spec and returns those selected by filter.
// Any invalid spec fails the whole discovery, selected or not.
func (h *Harness) Discover(filter string) ([]*spec.TestSpec, error) {
	res, err := discovery.Collect(h.cfg.TestsDir, h.cfg.SpecExt, h.cfg.ProgramsDir, filter, h.logger)
	if err != nil {
		return nil, err
	}

	for _, d := range res.Duplicates {
		h.logger.Warn("duplicate test name", "name", d.Name, "first", d.First, "second", d.Second)
		h.reporter.Warn("test name %q is used by both %s and %s; their artifacts overwrite each other", d.Name, d.First, d.Second)
	}

	h.logger.Info("specs discovered", "loaded", res.Loaded, "selected", len(res.Specs), "filter", filter)
	return res.Specs, nil
}

// build runs the build once and converts failure into a BuildError.
func (h *Harness) build(ctx context.Context) error {
	h.reporter.Building()

	code, err := h.pipeline.Build(ctx)
	if err != nil {
		return &BuildError{ExitCode: code, Err: err}
	}
	if code != 0 {
		return &BuildError{ExitCode: code}
	}
	return nil
}

// RunAll evaluates every selected spec and returns the outcome.
//
// The error is non-nil only for run-fatal conditions: discovery and spec
// errors, *BuildError, and ErrInterrupted. Test failures are recorded in
// the outcome. On ErrInterrupted the outcome holds the tests evaluated
// before cancellation.
func (h *Harness) RunAll(ctx context.Context, opts Options) (*report.Outcome, error) {
	specs, err := h.Discover(opts.Filter)
	if err != nil {
		return nil, err
	}

	if err := h.build(ctx); err != nil {
		h.logger.Error("build failed", "error", err)
		h.reporter.BuildFailed(err)
		return h.reporter.Outcome(), err
	}

	var interrupted error
	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		h.runTest(ctx, s, opts)
	}
	if interrupted == nil {
		interrupted = ctx.Err()
	}

	h.reporter.Summary()
	outcome := h.reporter.Outcome()

	if interrupted != nil {
		h.logger.Warn("run interrupted", "evaluated", outcome.Total(), "selected", len(specs))
		return outcome, fmt.Errorf("%w: %w", ErrInterrupted, interrupted)
	}
	h.logger.Info("run finished", "passed", len(outcome.Passed), "failed", len(outcome.Failed))
	return outcome, nil
}

// runTest evaluates one spec and records it with the reporter.
func (h *Harness) runTest(ctx context.Context, s *spec.TestSpec, opts Options) {
	start := time.Now()
	logger := h.logger.With("test", s.Name)
	logger.Info("running test", "source", s.Source, "args", s.Args)

	entry := report.Entry{Spec: s}
	if fp, err := fingerprint.SpecFile(s, h.cfg.ProgramsDir); err != nil {
		logger.Warn("could not fingerprint spec", "error", err)
	} else {
		entry.Fingerprint = fp
	}

	h.reporter.Start(s.Name)
	failure, evidence, compiled := h.evaluate(ctx, s, opts)

	entry.Duration = time.Since(start)
	if compiled {
		if digest, err := h.pipeline.Artifacts().TargetDigest(s.Name); err != nil {
			logger.Warn("could not digest target artifact", "error", err)
		} else {
			entry.TargetDigest = digest
		}
	}

	if failure != nil {
		logger.Info("test failed", "kind", failure.Kind, "duration", entry.Duration)
		entry.Failure = failure
		entry.Evidence = evidence
		h.reporter.Fail(entry)
		return
	}
	logger.Info("test passed", "duration", entry.Duration)
	h.reporter.Pass(entry)
}

// evaluate runs the five stages of a differential test. It returns a nil
// failure when the target reproduces the native run; compiled reports
// whether this run produced the target artifact.
func (h *Harness) evaluate(ctx context.Context, s *spec.TestSpec, opts Options) (failure *report.Failure, ev *report.Evidence, compiled bool) {
	ev = &report.Evidence{}
	refName := filepath.Base(h.cfg.ReferenceCompiler)

	h.reporter.Step("Compiling with " + refName)
	ref, err := h.pipeline.CompileReference(ctx, s.Source, s.Name)
	ev.ReferenceDiagnostics = ref.Diagnostics
	if err != nil {
		return executionFailure("failed to run "+refName, err), ev, false
	}
	if !ref.OK() {
		return report.NewFailure(report.ReferenceCompile,
			fmt.Sprintf("failed to compile with %s (exit code %d)", refName, ref.ExitCode), nil), ev, false
	}

	h.reporter.Step("Running " + refName + " output")
	native, err := h.pipeline.RunNative(ctx, s.Name, s.Args)
	ev.Native = &native
	if err != nil {
		return executionFailure("failed to run native artifact", err), ev, false
	}

	h.reporter.Step("Compiling wasm")
	cut, err := h.pipeline.CompileUnderTest(ctx, s.Source, s.Name, opts.CompilerFlags)
	ev.CompilerDiagnostics = cut.Diagnostics
	if err != nil {
		return executionFailure("failed to run compiler", err), ev, false
	}
	if !cut.OK() {
		return report.NewFailure(report.UnderTestCompile,
			fmt.Sprintf("failed to compile wasm (exit code %d)", cut.ExitCode), nil), ev, false
	}

	h.reporter.Step("Running wasm")
	target, err := h.pipeline.RunTarget(ctx, s.Name, s.Args)
	ev.Target = &target
	if err != nil {
		return executionFailure("failed to run target artifact", err), ev, true
	}

	verdict := oracle.Explain(native, target)
	if verdict.Pass {
		return nil, nil, true
	}
	ev.StdoutDiff = verdict.StdoutDiff
	msg := "native and target outputs didn't match: " + strings.Join(verdict.Reasons(native, target), "; ")
	return report.NewFailure(report.OutputMismatch, msg, nil), ev, true
}

func executionFailure(msg string, err error) *report.Failure {
	switch {
	case errors.Is(err, process.ErrTimeout):
		msg += " (timed out)"
	case errors.Is(err, context.Canceled):
		msg += " (interrupted)"
	}
	return report.NewFailure(report.Execution, msg, err)
}

// RunProgram is interactive mode: for each selected spec it compiles with
// the compiler under test, runs the target and prints its raw output.
//
// It stops at the first compile failure and returns a *CompileError, or at
// the first program that cannot be run to completion and returns a
// *ProgramError after printing what it captured. Program exit codes are
// shown but never make RunProgram fail.
func (h *Harness) RunProgram(ctx context.Context, opts Options) error {
	specs, err := h.Discover(opts.Filter)
	if err != nil {
		return err
	}

	if err := h.build(ctx); err != nil {
		h.logger.Error("build failed", "error", err)
		h.reporter.BuildFailed(err)
		return err
	}

	for _, s := range specs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}

		h.reporter.Running(s.Name)
		h.reporter.Step("Compiling wasm")
		cut, err := h.pipeline.CompileUnderTest(ctx, s.Source, s.Name, opts.CompilerFlags)
		if err != nil {
			return programError(ctx, s.Name, executionFailure("failed to run compiler", err))
		}
		if !cut.OK() {
			h.reporter.CompileFailed(cut.Diagnostics)
			return &CompileError{Name: s.Name, ExitCode: cut.ExitCode}
		}

		args := s.Args
		if len(opts.ProgramArgs) > 0 {
			args = opts.ProgramArgs
		}

		h.reporter.Step("Running wasm")
		res, err := h.pipeline.RunTarget(ctx, s.Name, args)
		if err != nil {
			h.reporter.Program(res)
			return programError(ctx, s.Name, executionFailure("failed to run target artifact", err))
		}
		h.logger.Debug("program finished", "test", s.Name, "exit_code", res.ExitCode, "duration", res.Duration)
		h.reporter.Program(res)
	}
	return nil
}

// programError reports a cancelled context as an interruption rather than
// a program failure.
func programError(ctx context.Context, name string, f *report.Failure) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return &ProgramError{Name: name, Failure: f}
}
