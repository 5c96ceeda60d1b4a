package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martin-walls/wasm-testsuite/internal/report"
	"github.com/martin-walls/wasm-testsuite/internal/spec"
	"github.com/martin-walls/wasm-testsuite/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Mode:       ModeBatch,
		Filter:     "fib",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Passed:     1,
		Failed:     1,
		Results: []Result{
			{Seq: 1, Name: "fib", SpecPath: "/t/fib.yaml", Fingerprint: "aa", Status: "passed", TargetDigest: "0123456789abcdef"},
			{Seq: 2, Name: "fib-big", SpecPath: "/t/fib-big.yaml", Fingerprint: "bb", Status: "failed", Kind: "output_mismatch", Message: "outputs differ"},
		},
	}
}

func TestOpen_Pragmas(t *testing.T) {
	st := openTestStore(t)

	tests := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	}
	for name, want := range tests {
		got, err := st.pragma(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.RecordRun(context.Background(), sampleRun("r1", testutil.ClockOrigin)))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	st, err := Open(path)
	require.NoError(t, err)
	_, err = st.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestRecordRun_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	run := sampleRun("r1", testutil.ClockOrigin)

	require.NoError(t, st.RecordRun(ctx, run))

	got, err := st.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Filter, got.Filter)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, 1, got.Passed)
	assert.Equal(t, 1, got.Failed)
	assert.False(t, got.AllPassed)
	assert.Equal(t, run.Results, got.Results)
}

func TestRecordRun_Atomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("r1", testutil.ClockOrigin)
	run.Results[1].Seq = 1 // duplicate primary key

	require.Error(t, st.RecordRun(ctx, run))

	runs, err := st.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "failed result insert rolls back the run row")
}

func TestRecordRun_Rejects(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, st.RecordRun(ctx, Run{}), ErrEmptyRunID)

	require.NoError(t, st.RecordRun(ctx, sampleRun("r1", testutil.ClockOrigin)))
	assert.Error(t, st.RecordRun(ctx, sampleRun("r1", testutil.ClockOrigin)), "duplicate run ID")
}

func TestRecentRuns_NewestFirstWithLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	clock := testutil.NewDeterministicClock()

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, st.RecordRun(ctx, sampleRun(id, clock.Now())))
	}

	runs, err := st.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
	assert.Empty(t, runs[0].Results)

	all, err := st.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecentRuns_Empty(t *testing.T) {
	st := openTestStore(t)

	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestGetRun_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFromOutcome(t *testing.T) {
	fib := &spec.TestSpec{Name: "fib", Path: "/t/fib.yaml"}
	bad := &spec.TestSpec{Name: "bad", Path: "/t/bad.yaml"}

	r := report.New(nil, report.Options{Quiet: true})
	r.Pass(report.Entry{Spec: fib, Fingerprint: "f1", TargetDigest: "d1"})
	r.Fail(report.Entry{Spec: bad, Failure: report.NewFailure(report.ReferenceCompile, "failed to compile with gcc", nil)})
	o := r.Outcome()

	start := testutil.ClockOrigin
	run := FromOutcome("r1", "", start, start.Add(time.Second), o)

	assert.Equal(t, ModeBatch, run.Mode)
	assert.Equal(t, 1, run.Passed)
	assert.Equal(t, 1, run.Failed)
	assert.False(t, run.AllPassed)
	assert.Equal(t, []Result{
		{Seq: 1, Name: "fib", SpecPath: "/t/fib.yaml", Fingerprint: "f1", Status: "passed", TargetDigest: "d1"},
		{Seq: 2, Name: "bad", SpecPath: "/t/bad.yaml", Status: "failed", Kind: "reference_compile", Message: "failed to compile with gcc"},
	}, run.Results)
}

func TestUUIDv7Generator(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "7", a[14:15], "version nibble")
}
