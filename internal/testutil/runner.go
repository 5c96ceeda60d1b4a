package testutil

import (
	"context"
	"sync"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// ScriptedRunner is a process.Runner that records every command and answers
// with Handler instead of starting a child.
//
// A nil Handler makes every command succeed with empty output.
type ScriptedRunner struct {
	Handler func(c process.Command) (process.Result, error)

	mu    sync.Mutex
	calls []process.Command
}

// Run records c and returns the handler's answer.
func (r *ScriptedRunner) Run(ctx context.Context, c process.Command) (process.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return process.Result{ExitCode: -1}, err
	}
	if r.Handler == nil {
		return process.Result{}, nil
	}
	return r.Handler(c)
}

// Calls returns a copy of the recorded commands in order.
func (r *ScriptedRunner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.calls...)
}

// CallsTo returns the recorded commands whose executable is path.
func (r *ScriptedRunner) CallsTo(path string) []process.Command {
	var out []process.Command
	for _, c := range r.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}
