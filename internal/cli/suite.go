package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/martin-walls/wasm-testsuite/internal/config"
	"github.com/martin-walls/wasm-testsuite/internal/harness"
	"github.com/martin-walls/wasm-testsuite/internal/history"
	"github.com/martin-walls/wasm-testsuite/internal/process"
	"github.com/martin-walls/wasm-testsuite/internal/report"
	"github.com/martin-walls/wasm-testsuite/internal/toolchain"
)

// SuiteOptions holds flags for the root command.
type SuiteOptions struct {
	*RootOptions
	Interactive bool     // run programs instead of comparing them
	Args        []string // program args override, interactive mode only
	Flags       []string // extra compiler flags, without the leading "--"
}

// BatchResult is the JSON payload of a batch.
type BatchResult struct {
	AllPassed bool         `json:"all_passed"`
	Total     int          `json:"total"`
	Passed    []string     `json:"passed"`
	Failed    []string     `json:"failed"`
	Results   []TestResult `json:"results"`
}

// TestResult is one evaluated test in a BatchResult.
type TestResult struct {
	Name         string `json:"name"`
	Spec         string `json:"spec"`
	Status       string `json:"status"`
	Kind         string `json:"kind,omitempty"`
	Message      string `json:"message,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	TargetDigest string `json:"target_digest,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// newSuiteCommand creates the command that runs the test suite.
func newSuiteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuiteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "testsuite [filter] [-- program-args...]",
		Short: "Differential test suite for the C to WebAssembly compiler",
		Long: `Build the compiler, then compile every test program with gcc and with
the compiler under test, run both and compare exit code and stdout.

A filter selects the tests whose name contains it. With --run the
selected programs are compiled to wasm and run, and their output is
printed without comparison.

--args and --flags take every value that follows them up to the next
flag, so a filter must come before them.

Exit codes:
  0 - All tests passed
  1 - One or more tests failed, or the build failed
  2 - Command error (invalid spec, bad flags, etc.)

Examples:
  testsuite
  testsuite fib
  testsuite fib --flags emit-ir O2
  testsuite fib --run --args 10 20
  testsuite fib --run -- 10 20
  testsuite --format json --history .testsuite/history.db`,
		Args: func(cmd *cobra.Command, args []string) error {
			_, _, err := splitArgs(cmd, args)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, extra, err := splitArgs(cmd, args)
			if err != nil {
				return err
			}
			return runSuite(cmd, opts, filter, extra)
		},
	}

	cmd.Flags().BoolVarP(&opts.Interactive, "run", "r", false, "run the selected programs and print their output")
	cmd.Flags().StringArrayVar(&opts.Args, "args", nil, "program arguments for --run, overriding the spec's args (takes every following value)")
	cmd.Flags().StringArrayVar(&opts.Flags, "flags", nil, "extra compiler flags, each passed as --<flag> (takes every following value)")

	return cmd
}

// splitArgs separates the optional filter from program args after "--".
func splitArgs(cmd *cobra.Command, args []string) (string, []string, error) {
	positional, extra := args, []string(nil)
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		positional, extra = args[:n], args[n:]
	}
	if len(positional) > 1 {
		return "", nil, NewExitError(ExitCommandError, fmt.Sprintf("accepts at most 1 filter, received %d", len(positional)))
	}
	if len(positional) == 0 {
		return "", extra, nil
	}
	return positional[0], extra, nil
}

func runSuite(cmd *cobra.Command, opts *SuiteOptions, filter string, extra []string) error {
	out := opts.formatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr())

	if opts.Interactive && out.JSON() {
		return out.Fail(NewExitError(ExitCommandError, "--format json cannot be combined with --run"))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return out.Fail(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := report.New(cmd.OutOrStdout(), report.Options{
		Quiet:   out.JSON(),
		NoColor: opts.NoColor || out.JSON(),
	})

	runner := opts.Runner
	if runner == nil {
		runner = process.NewExecRunner(cfg.Timeout, logger)
	}
	tc := toolchain.New(cfg, runner, logger)
	tc.BuildStdout, tc.BuildStderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
	if out.JSON() {
		tc.BuildStdout = cmd.ErrOrStderr()
	}

	h := harness.New(cfg, tc, reporter, logger)
	hopts := harness.Options{
		Filter:        filter,
		CompilerFlags: toolchain.FlagArgs(opts.Flags),
		ProgramArgs:   append(append([]string{}, opts.Args...), extra...),
	}

	if opts.Interactive {
		logger.Info("running programs", "filter", filter, "flags", opts.Flags)
		return reported(out.Fail(h.RunProgram(ctx, hopts)))
	}
	if len(hopts.ProgramArgs) > 0 {
		logger.Warn("program args are only used with --run; ignoring them", "args", hopts.ProgramArgs)
	}

	started := opts.now()
	outcome, runErr := h.RunAll(ctx, hopts)
	finished := opts.now()

	var runID string
	if outcome != nil && (runErr == nil || errors.Is(runErr, harness.ErrInterrupted)) {
		runID = recordHistory(ctx, opts, cfg, logger, reporter, filter, started, finished, outcome)
	}

	if out.JSON() {
		return writeBatch(out, outcome, runErr, runID)
	}
	if runErr != nil {
		return reported(out.Fail(runErr))
	}
	if !outcome.AllPassed() {
		return &ExitError{
			Code:     ExitFailure,
			Kind:     KindTestsFailed,
			Message:  fmt.Sprintf("%d of %d test(s) failed", len(outcome.Failed), outcome.Total()),
			Reported: true,
		}
	}
	return nil
}

// reported marks errors the reporter has already shown in text mode.
func reported(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	switch exitErr.Kind {
	case KindBuild, KindCompile, KindTestsFailed:
		exitErr.Reported = true
	}
	return err
}

// recordHistory stores the batch when a history database is configured.
// Failing to record is a warning; the batch verdict stands.
func recordHistory(ctx context.Context, opts *SuiteOptions, cfg *config.Config, logger *slog.Logger, reporter *report.Reporter,
	filter string, started, finished time.Time, outcome *report.Outcome) string {
	if cfg.HistoryDB == "" {
		return ""
	}

	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o755); err != nil {
		logger.Warn("could not create history directory", "path", cfg.HistoryDB, "error", err)
		reporter.Warn("run not recorded: %v", err)
		return ""
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Warn("could not open history database", "path", cfg.HistoryDB, "error", err)
		reporter.Warn("run not recorded: %v", err)
		return ""
	}
	defer store.Close()

	run := history.FromOutcome(opts.ids().Generate(), filter, started, finished, outcome)
	if err := store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("could not record run", "id", run.ID, "error", err)
		reporter.Warn("run not recorded: %v", err)
		return ""
	}
	logger.Info("run recorded", "id", run.ID, "path", cfg.HistoryDB)
	return run.ID
}

// writeBatch writes the JSON response for a batch.
func writeBatch(out *OutputFormatter, outcome *report.Outcome, runErr error, runID string) error {
	resp := CLIResponse{Status: "ok", RunID: runID}
	if outcome != nil {
		resp.Data = newBatchResult(outcome)
	}

	var exitErr *ExitError
	switch {
	case runErr != nil:
		exitErr = classify(runErr)
	case outcome != nil && !outcome.AllPassed():
		exitErr = &ExitError{
			Code:    ExitFailure,
			Kind:    KindTestsFailed,
			Message: fmt.Sprintf("%d of %d test(s) failed", len(outcome.Failed), outcome.Total()),
		}
	}
	if exitErr != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: exitErr.Kind, Message: exitErr.Message}
		if exitErr.Err != nil {
			resp.Error.Details = exitErr.Err.Error()
		}
		exitErr.Reported = true
	}

	if err := out.Respond(resp); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if exitErr != nil {
		return exitErr
	}
	return nil
}

func newBatchResult(o *report.Outcome) BatchResult {
	res := BatchResult{
		AllPassed: o.AllPassed(),
		Total:     o.Total(),
		Passed:    make([]string, 0, len(o.Passed)),
		Failed:    make([]string, 0, len(o.Failed)),
		Results:   make([]TestResult, 0, len(o.Entries)),
	}
	for _, s := range o.Passed {
		res.Passed = append(res.Passed, s.Name)
	}
	for _, s := range o.Failed {
		res.Failed = append(res.Failed, s.Name)
	}
	for _, e := range o.Entries {
		r := TestResult{
			Status:       string(e.Status),
			Fingerprint:  e.Fingerprint,
			TargetDigest: e.TargetDigest,
			DurationMS:   e.Duration.Milliseconds(),
		}
		if e.Spec != nil {
			r.Name = e.Spec.Name
			r.Spec = e.Spec.Path
		}
		if e.Failure != nil {
			r.Kind = string(e.Failure.Kind)
			r.Message = e.Failure.Error()
		}
		res.Results = append(res.Results, r)
	}
	return res
}
