package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/nnvts/internal/harness"
)

// RecordReport implements harness.Recorder.
func (s *Store) RecordReport(ctx context.Context, r *harness.Report) error {
	_, err := s.WriteReport(ctx, r)
	return err
}

// WriteReport stores a report and its outcomes in one transaction and
// returns the new run ID.
//
// The run gets the next seq, so runs list in the order they were written
// even when their recorded_at timestamps collide. Outcomes keep their
// report order. Unknown timings are stored as NULL.
//
// Parameters:
//   - ctx: Context for the transaction
//   - r: the report to store; it is not modified
//
// Returns:
//   - string: the run ID from the store's ID generator
//   - error: encoding or database errors; nothing is written on error
func (s *Store) WriteReport(ctx context.Context, r *harness.Report) (string, error) {
	errorsJSON, err := marshalList("errors", r.Errors)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write report: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return "", fmt.Errorf("write report: next seq: %w", err)
	}

	id := s.newID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, name, version, pass, skipped, reason, errors, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		r.Name,
		string(r.Version),
		boolInt(r.Pass),
		boolInt(r.Skipped),
		r.Reason,
		errorsJSON,
		s.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("write report: insert run: %w", err)
	}

	for i, o := range r.Outcomes {
		if err := writeOutcome(ctx, tx, id, i, o); err != nil {
			return "", fmt.Errorf("write report: outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write report: commit: %w", err)
	}
	return id, nil
}

func writeOutcome(ctx context.Context, tx *sql.Tx, runID string, position int, o harness.Outcome) error {
	failuresJSON, err := marshalList("failures", o.Failures)
	if err != nil {
		return err
	}
	mismatchesJSON, err := marshalList("mismatches", o.Comparison.Mismatches)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, position, combination, example, status, reason, failures, mismatches,
		 mismatch_total, time_on_device, time_in_driver)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		position,
		o.Combination.String(),
		o.Example,
		string(o.Status),
		o.Reason,
		failuresJSON,
		mismatchesJSON,
		o.Comparison.Total,
		timingValue(o.Timing.OnDevice),
		timingValue(o.Timing.InDriver),
	)
	return err
}

// DeleteRun removes a run and its outcomes. Deleting an unknown run is
// not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
