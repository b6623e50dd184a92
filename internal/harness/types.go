package harness

import (
	"fmt"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/executor"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/validate"
)

// Example is one set of inputs and the outputs expected for them.
type Example struct {
	Inputs *operand.Collection
	Golden *operand.Collection

	// MultinomialTolerance enables the sampling check when positive.
	MultinomialTolerance float32
}

// Combination is one cell of the execution matrix.
type Combination struct {
	Executor executor.Executor
	Measure  device.MeasureTiming
	Mode     validate.OutputMode
}

// String renders the combination as executor/timing/mode.
func (c Combination) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Executor, c.Measure, c.Mode)
}

// MarshalText encodes the combination as its String form.
func (c Combination) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes the String form.
func (c *Combination) UnmarshalText(text []byte) error {
	parsed, err := ParseCombination(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCombination resolves a combination from its String form.
func ParseCombination(s string) (Combination, error) {
	for _, dynamic := range []bool{false, true} {
		for _, c := range Combinations(device.V1_2, dynamic) {
			if c.String() == s {
				return c, nil
			}
		}
	}
	return Combination{}, fmt.Errorf("unknown combination %q", s)
}

// Combinations returns the execution matrix for an interface version in
// run order: executor varies fastest, then timing, then output mode.
func Combinations(v device.Version, dynamicShape bool) []Combination {
	if v != device.V1_2 {
		return []Combination{{Executor: executor.Async, Measure: device.MeasureNo, Mode: validate.FullySpecified}}
	}

	modes := []validate.OutputMode{validate.FullySpecified}
	if dynamicShape {
		modes = []validate.OutputMode{validate.Unspecified, validate.Insufficient}
	}
	var combos []Combination
	for _, mode := range modes {
		for _, measure := range []device.MeasureTiming{device.MeasureNo, device.MeasureYes} {
			for _, ex := range []executor.Executor{executor.Async, executor.Sync, executor.Burst} {
				combos = append(combos, Combination{Executor: ex, Measure: measure, Mode: mode})
			}
		}
	}
	return combos
}

// Status is the verdict for one example under one combination.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Outcome is the result of evaluating one example under one combination.
type Outcome struct {
	Combination Combination         `json:"combination"`
	Example     int                 `json:"example"` // 1-based
	Status      Status              `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	Failures    []string            `json:"failures,omitempty"`
	Comparison  validate.Comparison `json:"comparison"`
	Timing      device.Timing       `json:"timing"`
}

func (o *Outcome) fail(format string, args ...any) {
	o.Failures = append(o.Failures, fmt.Sprintf(format, args...))
	o.Status = StatusFail
}

// Report collects everything one Execute call observed.
type Report struct {
	Name    string         `json:"name"`
	Version device.Version `json:"version"`

	// Pass is false once any failure was recorded.
	Pass bool `json:"pass"`
	// Skipped is set when the device declined to prepare the model.
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`

	Outcomes []Outcome `json:"outcomes"`
	Errors   []string  `json:"errors,omitempty"`
}

// NewReport creates a passing report with no outcomes.
func NewReport(name string, v device.Version) *Report {
	return &Report{Name: name, Version: v, Pass: true, Outcomes: []Outcome{}}
}

// AddError records a model-level failure.
func (r *Report) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutcome appends an example outcome, failing the report if it failed.
func (r *Report) AddOutcome(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Status == StatusFail {
		r.Pass = false
	}
}

// Counts returns how many outcomes have each status.
func (r *Report) Counts() map[Status]int {
	counts := map[Status]int{}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}
