package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares a report against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Reports are serialized as indented JSON. Reports that include measured
// timings are only stable when the device runs on a deterministic clock.
// Pass WithName to the entry point so the report name does not depend on
// the test name.
//
// Parameters:
//   - t: testing.T instance for test assertions
//   - name: name used for the golden file (without extension)
//   - report: the report returned by ExecuteV1_0, ExecuteV1_1 or ExecuteV1_2
//
// Returns error if the report cannot be serialized.
// Test failure (via goldie) occurs if the report doesn't match the golden file.
func AssertGolden(t *testing.T, name string, report *Report) error {
	t.Helper()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
