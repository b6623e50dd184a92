package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/executor"
	"github.com/roach88/nnvts/internal/harness"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/testutil"
	"github.com/roach88/nnvts/internal/validate"
)

var testEpoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestStore creates a store in a temp dir with sequential run IDs
// and a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	ids := testutil.NewSequentialIDs("run")
	s, err := Open(path, WithIDGenerator(ids.Next), WithNow(func() time.Time { return testEpoch }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func combo(ex executor.Executor, m device.MeasureTiming, mode validate.OutputMode) harness.Combination {
	return harness.Combination{Executor: ex, Measure: m, Mode: mode}
}

// createTestReport creates a failing 1.2 report with one outcome of each
// status.
func createTestReport(name string) *harness.Report {
	r := harness.NewReport(name, device.V1_2)
	r.AddOutcome(harness.Outcome{
		Combination: combo(executor.Async, device.MeasureNo, validate.FullySpecified),
		Example:     1,
		Status:      harness.StatusPass,
		Timing:      device.UnknownTiming(),
	})
	r.AddOutcome(harness.Outcome{
		Combination: combo(executor.Burst, device.MeasureYes, validate.FullySpecified),
		Example:     1,
		Status:      harness.StatusFail,
		Failures:    []string{"timeOnDevice 100 exceeds timeInDriver 50"},
		Comparison: validate.Comparison{
			Mismatches: []validate.Mismatch{{Operand: 0, Kind: operand.Float32, Element: 1, Expected: 22, Actual: 22.5}},
			Total:      3,
		},
		Timing: device.Timing{OnDevice: 100, InDriver: 50},
	})
	r.AddOutcome(harness.Outcome{
		Combination: combo(executor.Sync, device.MeasureYes, validate.Insufficient),
		Example:     2,
		Status:      harness.StatusSkip,
		Reason:      "early termination: device cannot execute a model it does not support",
		Timing:      device.UnknownTiming(),
	})
	return r
}
