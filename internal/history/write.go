package history

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyRunID is returned when a run has no ID.
var ErrEmptyRunID = errors.New("run ID is empty")

// RecordRun writes run and its results in one transaction.
// Recording the same run ID twice is an error.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: %w", ErrEmptyRunID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, filter, started_at, finished_at, passed, failed, all_passed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Mode,
		run.Filter,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Passed,
		run.Failed,
		boolToInt(run.AllPassed),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, seq, name, spec_path, fingerprint, status, kind, message, target_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record run %s: prepare results: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, r := range run.Results {
		_, err := stmt.ExecContext(ctx,
			run.ID,
			r.Seq,
			r.Name,
			r.SpecPath,
			r.Fingerprint,
			r.Status,
			r.Kind,
			r.Message,
			r.TargetDigest,
		)
		if err != nil {
			return fmt.Errorf("record run %s: result %d: %w", run.ID, r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: commit: %w", run.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
