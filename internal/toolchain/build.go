package toolchain

import (
	"context"
	"fmt"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// Build runs the configured build command in the project root, streaming
// its output.
func (t *Toolchain) Build(ctx context.Context) (int, error) {
	argv := t.cfg.BuildCommand
	if len(argv) == 0 {
		return -1, fmt.Errorf("build command is empty")
	}

	c := process.Command{
		Path:   argv[0],
		Args:   argv[1:],
		Dir:    t.cfg.ProjectRoot,
		Stdout: t.BuildStdout,
		Stderr: t.BuildStderr,
	}

	t.logger.Info("building compiler", "command", c.String(), "dir", c.Dir)
	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return res.ExitCode, fmt.Errorf("build: %w", err)
	}
	t.logger.Info("build finished", "exit_code", res.ExitCode, "duration", res.Duration)
	return res.ExitCode, nil
}
