package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/harness"
	"github.com/roach88/nnvts/internal/validate"
)

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("run not found")

// Run is one stored report without its outcomes.
type Run struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	Name       string         `json:"name"`
	Version    device.Version `json:"version"`
	Pass       bool           `json:"pass"`
	Skipped    bool           `json:"skipped"`
	Reason     string         `json:"reason,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`

	// Outcome counts by status.
	Passed          int `json:"passed"`
	Failed          int `json:"failed"`
	SkippedOutcomes int `json:"skipped_outcomes"`
}

// Filter narrows ListRuns. The zero value lists everything.
type Filter struct {
	Name       string
	FailedOnly bool
	// Limit keeps the most recent runs when positive.
	Limit int
}

const runColumns = `
	r.id, r.seq, r.name, r.version, r.pass, r.skipped, r.reason, r.errors, r.recorded_at,
	COALESCE(SUM(o.status = 'pass'), 0),
	COALESCE(SUM(o.status = 'fail'), 0),
	COALESCE(SUM(o.status = 'skip'), 0)
`

// ListRuns returns matching runs ordered by seq.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	limit := -1
	if f.Limit > 0 {
		limit = f.Limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT * FROM (
			SELECT `+runColumns+`
			FROM runs r LEFT JOIN outcomes o ON o.run_id = r.id
			WHERE (? = '' OR r.name = ?) AND (? = 0 OR r.pass = 0)
			GROUP BY r.id
			ORDER BY r.seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, f.Name, f.Name, boolInt(f.FailedOnly), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose ID is, or uniquely starts with, id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return Run{}, fmt.Errorf("get run: empty id")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r LEFT JOIN outcomes o ON o.run_id = r.id
		WHERE r.id = ? OR substr(r.id, 1, ?) = ?
		GROUP BY r.id
		ORDER BY r.id = ? DESC, r.seq ASC
		LIMIT 2
	`, id, len(id), id, id)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run: %w", err)
	}

	switch {
	case len(found) == 0:
		return Run{}, fmt.Errorf("get run %q: %w", id, ErrNotFound)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	}
	return Run{}, fmt.Errorf("get run: prefix %q is ambiguous", id)
}

// ReadOutcomes returns the outcomes of a run in the order they were
// reported.
//
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]harness.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT combination, example, status, reason, failures, mismatches,
		       mismatch_total, time_on_device, time_in_driver
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []harness.Outcome{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// ReadReport rebuilds the report stored under runID.
func (s *Store) ReadReport(ctx context.Context, runID string) (*harness.Report, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	outcomes, err := s.ReadOutcomes(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &harness.Report{
		Name:     run.Name,
		Version:  run.Version,
		Pass:     run.Pass,
		Skipped:  run.Skipped,
		Reason:   run.Reason,
		Outcomes: outcomes,
		Errors:   run.Errors,
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		version    string
		pass       int
		skipped    int
		errorsJSON string
		recordedAt int64
	)
	err := row.Scan(&run.ID, &run.Seq, &run.Name, &version, &pass, &skipped, &run.Reason,
		&errorsJSON, &recordedAt, &run.Passed, &run.Failed, &run.SkippedOutcomes)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Errors, err = unmarshalList[string]("errors", errorsJSON)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", run.ID, err)
	}
	run.Version = device.Version(version)
	run.Pass = pass != 0
	run.Skipped = skipped != 0
	run.RecordedAt = time.UnixMilli(recordedAt).UTC()
	return run, nil
}

func scanOutcome(row rowScanner) (harness.Outcome, error) {
	var (
		o              harness.Outcome
		combination    string
		status         string
		failuresJSON   string
		mismatchesJSON string
		onDevice       sql.NullInt64
		inDriver       sql.NullInt64
	)
	err := row.Scan(&combination, &o.Example, &status, &o.Reason, &failuresJSON, &mismatchesJSON,
		&o.Comparison.Total, &onDevice, &inDriver)
	if err != nil {
		return harness.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}

	if o.Combination, err = harness.ParseCombination(combination); err != nil {
		return harness.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	if o.Failures, err = unmarshalList[string]("failures", failuresJSON); err != nil {
		return harness.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	if o.Comparison.Mismatches, err = unmarshalList[validate.Mismatch]("mismatches", mismatchesJSON); err != nil {
		return harness.Outcome{}, fmt.Errorf("scan outcome: %w", err)
	}
	o.Status = harness.Status(status)
	o.Timing = device.Timing{OnDevice: timingFrom(onDevice), InDriver: timingFrom(inDriver)}
	return o, nil
}
