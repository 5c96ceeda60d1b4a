package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/martin-walls/wasm-testsuite/internal/harness"
	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Every evaluated test passed
	ExitFailure      = 1 // A test failed, the build failed or the run was interrupted
	ExitCommandError = 2 // Command error (bad flags, invalid spec, missing directories, etc.)
)

// Error kinds reported in JSON error responses.
const (
	KindCommand     = "command"
	KindConfig      = "config"
	KindInvalidSpec = "invalid_spec"
	KindBuild       = "build_failed"
	KindCompile     = "compile_failed"
	KindInterrupted = "interrupted"
	KindExecution   = "execution"
	KindTestsFailed = "tests_failed"
	KindHistory     = "history"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Kind    string // Machine-readable category, one of the Kind constants
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the operator has already been shown the
	// error, through the reporter or a JSON response.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Kind: KindCommand, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Kind: KindCommand, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// PrintError writes err for the operator unless it was already reported.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// classify maps a harness error onto an exit code and kind. Errors that
// are already ExitErrors pass through unchanged.
func classify(err error) *ExitError {
	if err == nil {
		return nil
	}

	var (
		exitErr    *ExitError
		buildErr   *harness.BuildError
		compileErr *harness.CompileError
		programErr *harness.ProgramError
	)
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case spec.IsInvalidSpec(err):
		return &ExitError{Code: ExitCommandError, Kind: KindInvalidSpec, Message: "invalid test spec", Err: err}
	case errors.As(err, &buildErr):
		return &ExitError{Code: ExitFailure, Kind: KindBuild, Message: "error building project", Err: err}
	case errors.As(err, &compileErr):
		return &ExitError{Code: ExitFailure, Kind: KindCompile, Message: "error compiling program", Err: err}
	case errors.As(err, &programErr):
		return &ExitError{Code: ExitFailure, Kind: KindExecution, Message: "error running program", Err: err}
	case errors.Is(err, harness.ErrInterrupted):
		return &ExitError{Code: ExitFailure, Kind: KindInterrupted, Message: "stopped early", Err: err}
	default:
		return &ExitError{Code: ExitCommandError, Kind: KindCommand, Message: "command failed", Err: err}
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload, or partial results on error
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // history run ID, when the run was recorded
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // one of the Kind constants
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// JSON reports whether the formatter writes JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return f.Respond(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.JSON() {
		return f.Respond(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Respond writes resp as one JSON document.
func (f *OutputFormatter) Respond(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Fail reports err and marks it as reported. In text mode the error is
// left for the caller to print.
func (f *OutputFormatter) Fail(err error) error {
	if err == nil {
		return nil
	}
	exitErr := classify(err)
	if !f.JSON() {
		return exitErr
	}
	var details any
	if exitErr.Err != nil {
		details = exitErr.Err.Error()
	}
	if writeErr := f.Error(exitErr.Kind, exitErr.Message, details); writeErr != nil {
		return errors.Join(exitErr, writeErr)
	}
	exitErr.Reported = true
	return exitErr
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
