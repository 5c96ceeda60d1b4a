package toolchain

import (
	"context"
	"fmt"

	"github.com/martin-walls/wasm-testsuite/internal/process"
)

// RunNative executes the native artifact for name with args.
func (t *Toolchain) RunNative(ctx context.Context, name string, args []string) (process.Result, error) {
	c := process.Command{
		Path: t.artifacts.Native(name),
		Args: args,
	}
	t.logger.Debug("running native", "test", name, "command", c.String())

	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return res, fmt.Errorf("run native: %w", err)
	}
	return res, nil
}

// RunTarget executes the target artifact for name inside the runtime.
func (t *Toolchain) RunTarget(ctx context.Context, name string, args []string) (process.Result, error) {
	c := process.Command{
		Path: t.cfg.RuntimePath,
		Args: append([]string{t.artifacts.Target(name)}, args...),
	}
	t.logger.Debug("running target", "test", name, "command", c.String())

	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return res, fmt.Errorf("run target: %w", err)
	}
	return res, nil
}
