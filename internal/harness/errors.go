package harness

import (
	"errors"
	"fmt"

	"github.com/martin-walls/wasm-testsuite/internal/report"
)

// ErrInterrupted is returned when the batch is cancelled before every
// selected test was evaluated.
var ErrInterrupted = errors.New("run interrupted")

// BuildError reports that the compiler under test could not be built.
// No test is evaluated after a BuildError.
type BuildError struct {
	// ExitCode of the build command, or -1 if it never ran to completion.
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build failed: %v", e.Err)
	}
	return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// CompileError stops interactive mode when the compiler under test rejects
// a program.
type CompileError struct {
	Name     string
	ExitCode int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s: compiler exited with code %d", e.Name, e.ExitCode)
}

// ProgramError stops interactive mode when a program cannot be compiled or
// run to completion, for example because the runtime timed out.
type ProgramError struct {
	Name    string
	Failure *report.Failure
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Failure)
}

func (e *ProgramError) Unwrap() error {
	return e.Failure
}
