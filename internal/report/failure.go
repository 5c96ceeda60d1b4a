package report

import "fmt"

// FailureKind classifies why a test failed.
type FailureKind string

const (
	// ReferenceCompile: the reference compiler rejected the source.
	ReferenceCompile FailureKind = "reference_compile"
	// UnderTestCompile: the compiler under test rejected the source.
	UnderTestCompile FailureKind = "under_test_compile"
	// OutputMismatch: the artifacts disagree on exit code or stdout.
	OutputMismatch FailureKind = "output_mismatch"
	// Execution: a child could not be started, timed out or was cancelled.
	Execution FailureKind = "execution"
)

// Failure is a test-fatal condition. It ends one test; the batch continues.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// NewFailure creates a failure of the given kind.
func NewFailure(kind FailureKind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}
