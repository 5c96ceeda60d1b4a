// Package oracle decides whether a target run agrees with the native run.
//
// Agreement is exact: the same exit code and byte-identical stdout.
// Stderr is never compared.
package oracle

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// Compare reports whether target reproduces native.
func Compare(native, target process.Result) bool {
	return native.ExitCode == target.ExitCode && native.Stdout == target.Stdout
}

// Verdict is a Compare decision with the reasons behind it.
type Verdict struct {
	Pass           bool   `json:"pass"`
	ExitCodeDiffer bool   `json:"exit_code_differs"`
	StdoutDiffer   bool   `json:"stdout_differs"`
	StdoutDiff     string `json:"stdout_diff,omitempty"`
}

// Explain compares native and target and describes any difference.
// Pass is always equal to Compare(native, target).
func Explain(native, target process.Result) Verdict {
	v := Verdict{
		ExitCodeDiffer: native.ExitCode != target.ExitCode,
		StdoutDiffer:   native.Stdout != target.Stdout,
	}
	v.Pass = !v.ExitCodeDiffer && !v.StdoutDiffer
	if v.StdoutDiffer {
		v.StdoutDiff = cmp.Diff(lines(native.Stdout), lines(target.Stdout))
	}
	return v
}

// Reasons returns one short sentence per differing aspect.
func (v Verdict) Reasons(native, target process.Result) []string {
	var out []string
	if v.ExitCodeDiffer {
		out = append(out, fmt.Sprintf("exit code differs: native %d, target %d", native.ExitCode, target.ExitCode))
	}
	if v.StdoutDiffer {
		out = append(out, fmt.Sprintf("stdout differs: native %d bytes, target %d bytes", len(native.Stdout), len(target.Stdout)))
	}
	return out
}

// lines splits s keeping line terminators, so a missing trailing newline
// shows up in the diff.
func lines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
