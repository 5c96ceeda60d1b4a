//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configure(cmd *exec.Cmd) {}

func exitCode(ps *os.ProcessState) int {
	if ps == nil {
		return -1
	}
	return ps.ExitCode()
}
