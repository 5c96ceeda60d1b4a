package report

import (
	"time"

	"github.com/martin-walls/wasm-testsuite/internal/process"
	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

// Status is the verdict for one evaluated test.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Evidence is what was observed for a failed test. Fields that were not
// reached before the failure are left empty.
type Evidence struct {
	ReferenceDiagnostics string          `json:"reference_diagnostics,omitempty"`
	CompilerDiagnostics  string          `json:"compiler_diagnostics,omitempty"`
	Native               *process.Result `json:"native,omitempty"`
	Target               *process.Result `json:"target,omitempty"`
	StdoutDiff           string          `json:"stdout_diff,omitempty"`
}

// Entry is one evaluated test.
type Entry struct {
	Spec     *spec.TestSpec `json:"spec"`
	Status   Status         `json:"status"`
	Failure  *Failure       `json:"failure,omitempty"`
	Evidence *Evidence      `json:"evidence,omitempty"`

	// Fingerprint identifies the spec and source content that was tested.
	Fingerprint string `json:"fingerprint,omitempty"`

	// TargetDigest is the xxhash of the target artifact, when one exists.
	TargetDigest string `json:"target_digest,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Outcome is the result of a batch: passed and failed specs in evaluation
// order, plus the per-test entries behind them.
type Outcome struct {
	Passed  []*spec.TestSpec `json:"passed"`
	Failed  []*spec.TestSpec `json:"failed"`
	Entries []Entry          `json:"results"`
}

// NewOutcome returns an empty outcome.
func NewOutcome() *Outcome {
	return &Outcome{
		Passed:  []*spec.TestSpec{},
		Failed:  []*spec.TestSpec{},
		Entries: []Entry{},
	}
}

// AllPassed reports whether no evaluated test failed. It is true for an
// empty batch.
func (o *Outcome) AllPassed() bool {
	return len(o.Failed) == 0
}

// Total is the number of evaluated tests.
func (o *Outcome) Total() int {
	return len(o.Passed) + len(o.Failed)
}

func (o *Outcome) add(e Entry) {
	switch e.Status {
	case StatusPassed:
		o.Passed = append(o.Passed, e.Spec)
	default:
		o.Failed = append(o.Failed, e.Spec)
	}
	o.Entries = append(o.Entries, e)
}

// clone returns a copy that does not share slices with o.
func (o *Outcome) clone() *Outcome {
	return &Outcome{
		Passed:  append([]*spec.TestSpec{}, o.Passed...),
		Failed:  append([]*spec.TestSpec{}, o.Failed...),
		Entries: append([]Entry{}, o.Entries...),
	}
}
