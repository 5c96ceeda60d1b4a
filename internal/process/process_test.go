//go:build unix

package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string, args ...string) Command {
	return Command{Path: "/bin/sh", Args: append([]string{"-c", script, "sh"}, args...)}
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	r := NewExecRunner(0, nil)

	res, err := r.Run(context.Background(), sh(`printf 'out\n'; printf 'err' >&2; exit 3`))
	require.NoError(t, err)

	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestExecRunner_PassesArgsVerbatim(t *testing.T) {
	r := NewExecRunner(0, nil)

	res, err := r.Run(context.Background(), sh(`for a in "$@"; do printf '[%s]' "$a"; done`, "007", "two words", ""))
	require.NoError(t, err)
	assert.Equal(t, "[007][two words][]", res.Stdout)
}

func TestExecRunner_EnvAndDir(t *testing.T) {
	r := NewExecRunner(0, nil)
	dir := t.TempDir()

	c := sh(`printf '%s %s' "$HARNESS_VAR" "$(pwd)"`)
	c.Env = []string{"HARNESS_VAR=set"}
	c.Dir = dir

	res, err := r.Run(context.Background(), c)
	require.NoError(t, err)

	wantDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, "set "+wantDir, res.Stdout)
}

func TestExecRunner_InheritsEnvironment(t *testing.T) {
	t.Setenv("HARNESS_INHERITED", "yes")
	r := NewExecRunner(0, nil)

	c := sh(`printf '%s' "$HARNESS_INHERITED"`)
	c.Env = []string{"OTHER=1"}

	res, err := r.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "yes", res.Stdout)
}

func TestExecRunner_TeesOutput(t *testing.T) {
	r := NewExecRunner(0, nil)
	var live bytes.Buffer

	c := sh(`printf 'streamed'`)
	c.Stdout = &live

	res, err := r.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "streamed", res.Stdout)
	assert.Equal(t, "streamed", live.String())
}

func TestExecRunner_SignalledChild(t *testing.T) {
	r := NewExecRunner(0, nil)

	res, err := r.Run(context.Background(), sh(`kill -9 $$`))
	require.NoError(t, err)
	assert.Equal(t, -9, res.ExitCode)
}

func TestExecRunner_Timeout(t *testing.T) {
	r := NewExecRunner(100*time.Millisecond, nil)

	start := time.Now()
	_, err := r.Run(context.Background(), sh(`sleep 30 & wait`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecRunner_Cancelled(t *testing.T) {
	r := NewExecRunner(0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := r.Run(ctx, sh(`sleep 30`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestExecRunner_StartFailure(t *testing.T) {
	r := NewExecRunner(0, nil)

	res, err := r.Run(context.Background(), Command{Path: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, err.Error(), "failed to start")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCommand_String(t *testing.T) {
	c := Command{Path: "gcc", Args: []string{"a.c", "-o", "a.gcc"}}
	assert.Equal(t, "gcc a.c -o a.gcc", c.String())
	assert.Equal(t, []string{"gcc", "a.c", "-o", "a.gcc"}, c.Argv())
}
