// Package report prints the progress and verdicts of a batch and
// accumulates them into an Outcome.
//
// The Reporter owns all operator-facing text. Structured output (JSON) is
// produced by the caller from the Outcome; a quiet Reporter only records.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// Options configures a Reporter.
type Options struct {
	// Quiet suppresses all text; results are still recorded.
	Quiet bool

	// NoColor disables ANSI colours even on a terminal.
	NoColor bool
}

// Reporter writes human-readable progress and records results.
// Safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	quiet   bool
	outcome *Outcome

	pass  *color.Color
	fail  *color.Color
	warn  *color.Color
	title *color.Color
}

// New creates a reporter writing to w.
func New(w io.Writer, opts Options) *Reporter {
	r := &Reporter{
		w:       w,
		quiet:   opts.Quiet,
		outcome: NewOutcome(),
		pass:    color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow),
		title:   color.New(color.Bold),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{r.pass, r.fail, r.warn, r.title} {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) printf(format string, args ...any) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.w, format, args...)
}

// block prints a labelled chunk of captured output.
func (r *Reporter) block(label, body string) {
	r.printf("%s\n", r.title.Sprint(label))
	r.printf("%s", body)
	if !strings.HasSuffix(body, "\n") {
		r.printf("\n")
	}
}

// Building announces the build of the compiler under test.
func (r *Reporter) Building() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("Building project...\n")
}

// BuildFailed reports a run-fatal build failure.
func (r *Reporter) BuildFailed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s: %v\n", r.fail.Sprint("Error building project"), err)
}

// Warn prints a non-fatal warning.
func (r *Reporter) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("%s %s\n", r.warn.Sprint("warning:"), fmt.Sprintf(format, args...))
}

// Start announces a test.
func (r *Reporter) Start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("Running test: %s\n", name)
}

// Step announces a stage of the current test.
func (r *Reporter) Step(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("\t%s...\n", stage)
}

// Pass records a passed test.
func (r *Reporter) Pass(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Status = StatusPassed
	e.Failure = nil
	r.outcome.add(e)
	r.printf("\t%s\n", r.pass.Sprint("Test passed"))
}

// Fail records a failed test and prints the evidence gathered for it.
func (r *Reporter) Fail(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Status = StatusFailed
	if e.Failure == nil {
		e.Failure = NewFailure(Execution, "test failed", nil)
	}
	r.outcome.add(e)

	if ev := e.Evidence; ev != nil {
		switch e.Failure.Kind {
		case ReferenceCompile:
			r.block("Reference compiler output:", ev.ReferenceDiagnostics)
		case UnderTestCompile:
			r.block("Compiler output:", ev.CompilerDiagnostics)
		case OutputMismatch:
			r.block("Compiler output:", ev.CompilerDiagnostics)
			if ev.Native != nil {
				r.block(fmt.Sprintf("Native stdout, with exit code %d:", ev.Native.ExitCode), ev.Native.Stdout)
			}
			if ev.Target != nil {
				r.block(fmt.Sprintf("Target stdout, with exit code %d:", ev.Target.ExitCode), ev.Target.Stdout)
				r.block("Target stderr:", ev.Target.Stderr)
			}
			if ev.StdoutDiff != "" {
				r.block("Stdout diff (-native +target):", ev.StdoutDiff)
			}
		case Execution:
			// Only what was captured before the child failed.
			if ev.ReferenceDiagnostics != "" {
				r.block("Reference compiler output:", ev.ReferenceDiagnostics)
			}
			if ev.CompilerDiagnostics != "" {
				r.block("Compiler output:", ev.CompilerDiagnostics)
			}
			if ev.Native != nil {
				r.block(fmt.Sprintf("Native stdout, with exit code %d:", ev.Native.ExitCode), ev.Native.Stdout)
				if ev.Native.Stderr != "" {
					r.block("Native stderr:", ev.Native.Stderr)
				}
			}
			if ev.Target != nil {
				r.block(fmt.Sprintf("Target stdout, with exit code %d:", ev.Target.ExitCode), ev.Target.Stdout)
				r.block("Target stderr:", ev.Target.Stderr)
			}
		}
	}
	r.printf("\t%s: %s\n", r.fail.Sprint("Test failed"), e.Failure.Error())
}

// Summary prints the passed and failed names and the overall verdict.
func (r *Reporter) Summary() {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.outcome
	r.printf("\n%s\n", r.title.Sprint("Passed tests:"))
	for _, s := range o.Passed {
		r.printf("\t%s\n", s.Name)
	}
	r.printf("%s\n", r.title.Sprint("Failed tests:"))
	for _, s := range o.Failed {
		r.printf("\t%s\n", s.Name)
	}

	if o.AllPassed() {
		r.printf("%s\n", r.pass.Sprint("All tests passed"))
		return
	}
	r.printf("%s\n", r.fail.Sprintf("%d of %d test(s) failed", len(o.Failed), o.Total()))
}

// Running announces a program in interactive mode.
func (r *Reporter) Running(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.printf("Running %s\n", name)
}

// CompileFailed prints the compiler diagnostics in interactive mode.
func (r *Reporter) CompileFailed(diagnostics string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block("Compiler output:", diagnostics)
}

// Program prints a target run's raw output in interactive mode.
func (r *Reporter) Program(res process.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.block("Stdout:", res.Stdout)
	if res.Stderr != "" {
		r.block("Stderr:", res.Stderr)
	}
	r.printf("Exit code: %d\n", res.ExitCode)
}

// Outcome returns a snapshot of the results recorded so far.
func (r *Reporter) Outcome() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome.clone()
}
