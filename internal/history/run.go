package history

import (
	"time"

	"github.com/martin-walls/wasm-testsuite/internal/report"
)

// Modes a run can be recorded under.
const (
	ModeBatch       = "batch"
	ModeInteractive = "interactive"
)

// Run is one recorded batch.
type Run struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Filter     string    `json:"filter"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	AllPassed  bool      `json:"all_passed"`

	// Results is populated by RecordRun callers and by Results; RecentRuns
	// leaves it empty.
	Results []Result `json:"results,omitempty"`
}

// Result is one evaluated test within a run.
type Result struct {
	Seq          int    `json:"seq"`
	Name         string `json:"name"`
	SpecPath     string `json:"spec_path"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	Status       string `json:"status"`
	Kind         string `json:"kind,omitempty"`
	Message      string `json:"message,omitempty"`
	TargetDigest string `json:"target_digest,omitempty"`
}

// FromOutcome converts a batch outcome into a Run. Results keep the
// outcome's evaluation order, numbered from 1.
func FromOutcome(id, filter string, started, finished time.Time, o *report.Outcome) Run {
	run := Run{
		ID:         id,
		Mode:       ModeBatch,
		Filter:     filter,
		StartedAt:  started,
		FinishedAt: finished,
		Passed:     len(o.Passed),
		Failed:     len(o.Failed),
		AllPassed:  o.AllPassed(),
		Results:    make([]Result, 0, len(o.Entries)),
	}

	for i, e := range o.Entries {
		r := Result{
			Seq:          i + 1,
			Status:       string(e.Status),
			Fingerprint:  e.Fingerprint,
			TargetDigest: e.TargetDigest,
		}
		if e.Spec != nil {
			r.Name = e.Spec.Name
			r.SpecPath = e.Spec.Path
		}
		if e.Failure != nil {
			r.Kind = string(e.Failure.Kind)
			r.Message = e.Failure.Error()
		}
		run.Results = append(run.Results, r)
	}
	return run
}
