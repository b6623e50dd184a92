package harness

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/prepare"
)

// Harness holds the state of one Execute call.
type Harness struct {
	version  device.Version
	cfg      Config
	ctx      context.Context
	logger   *slog.Logger
	recorder Recorder
	report   *Report
}

func newHarness(t testing.TB, v device.Version, opts []Option) *Harness {
	o := buildOptions(opts)
	cfg := DefaultConfig(v)
	if o.cfg != nil {
		cfg = *o.cfg
	}
	name := o.name
	if name == "" {
		name = t.Name()
	}
	return &Harness{
		version:  v,
		cfg:      cfg,
		ctx:      o.ctx,
		logger:   o.logger.With("test", name, "version", string(v)),
		recorder: o.recorder,
		report:   NewReport(name, v),
	}
}

// ExecuteV1_0 prepares the model on a 1.0 device and checks every example
// with an asynchronous execution.
//
// Tolerance defaults to atol 1e-5 and rtol 5 FLT_EPSILON. The model's relax
// flag is ignored at this version. Outcomes are reported through t as for
// ExecuteV1_2.
func ExecuteV1_0(t testing.TB, dev device.DeviceV1_0, createModel func() device.Model,
	isIgnored func(int) bool, examples []Example, opts ...Option) *Report {
	t.Helper()
	h := newHarness(t, device.V1_0, opts)

	model, ok := h.model(t, createModel)
	if !ok {
		return h.report
	}
	// 1.0 models cannot relax float32 computation.
	h.cfg.RelaxComputation = false
	out := prepare.V1_0(h.ctx, dev, model)
	return h.run(t, out, isIgnored, examples, Combinations(device.V1_0, false))
}

// ExecuteV1_1 prepares the model on a 1.1 device and checks every example
// with an asynchronous execution. Relaxed models use the float16 tolerance.
func ExecuteV1_1(t testing.TB, dev device.DeviceV1_1, createModel func() device.Model,
	isIgnored func(int) bool, examples []Example, opts ...Option) *Report {
	t.Helper()
	h := newHarness(t, device.V1_1, opts)

	model, ok := h.model(t, createModel)
	if !ok {
		return h.report
	}
	h.cfg.RelaxComputation = h.cfg.RelaxComputation || model.RelaxComputationFloat32toFloat16
	out := prepare.V1_1(h.ctx, dev, model, h.cfg.Preference)
	return h.run(t, out, isIgnored, examples, Combinations(device.V1_1, false))
}

// ExecuteV1_2 prepares the model on a 1.2 device and checks every example
// under the full 1.2 matrix: async, sync and burst executors, each with and
// without timing. dynamicShape replaces the fully specified output mode
// with the unspecified and insufficient modes.
//
// Examples run one at a time in Combinations order. Each failure is
// reported with t.Errorf, tagged with the combination and the 1-based
// example number. Skipped examples are logged with t.Logf. When the device
// declines to prepare a model it does not fully support, the whole test is
// skipped with t.Skipf; any other preparation failure is an error.
//
// Parameters:
//   - t: the test receiving failures, logs and skips
//   - dev: the device under test
//   - createModel: builds the model; called once
//   - isIgnored: reports output operands excluded from comparison (may be nil)
//   - examples: inputs with their golden outputs
//   - dynamicShape: whether output shapes are left for the device to choose
//   - opts: WithConfig, WithLogger, WithRecorder, WithName, WithContext
//
// Returns the report of everything observed. It is also handed to the
// recorder, if one is set.
func ExecuteV1_2(t testing.TB, dev device.DeviceV1_2, createModel func() device.Model,
	isIgnored func(int) bool, examples []Example, dynamicShape bool, opts ...Option) *Report {
	t.Helper()
	h := newHarness(t, device.V1_2, opts)

	model, ok := h.model(t, createModel)
	if !ok {
		return h.report
	}
	h.cfg.RelaxComputation = h.cfg.RelaxComputation || model.RelaxComputationFloat32toFloat16
	out := prepare.V1_2(h.ctx, dev, model, h.cfg.Preference)
	return h.run(t, out, isIgnored, examples, Combinations(device.V1_2, dynamicShape))
}

func (h *Harness) model(t testing.TB, createModel func() device.Model) (device.Model, bool) {
	t.Helper()
	model := createModel()
	if err := model.Validate(); err != nil {
		h.fatal(t, fmt.Sprintf("invalid model: %v", err))
		return device.Model{}, false
	}
	return model, true
}

func (h *Harness) run(t testing.TB, out prepare.Outcome, isIgnored func(int) bool,
	examples []Example, combos []Combination) *Report {
	t.Helper()

	switch out.Kind {
	case prepare.Skip:
		h.report.Skipped = true
		h.report.Reason = out.Reason
		h.logger.Info("early termination", "reason", out.Reason)
		h.record(t)
		t.Skipf("early termination: %s", out.Reason)
		return h.report
	case prepare.Fail:
		h.fatal(t, fmt.Sprintf("prepare model: %v", out.Err))
		return h.report
	}

	for _, combo := range combos {
		h.logger.Debug("combination started", "combination", combo.String())
		outcomes := Evaluate(h.ctx, out.Prepared, isIgnored, examples, combo, h.cfg, WithLogger(h.logger))
		for _, o := range outcomes {
			h.report.AddOutcome(o)
			h.emit(t, o)
		}
		h.logger.Debug("combination finished", "combination", combo.String(), "examples", len(outcomes))
	}

	h.record(t)
	return h.report
}

// emit reports one outcome through t.
func (h *Harness) emit(t testing.TB, o Outcome) {
	t.Helper()
	prefix := fmt.Sprintf("%s example %d", o.Combination, o.Example)

	switch o.Status {
	case StatusSkip:
		t.Logf("%s: skipped: %s", prefix, o.Reason)
		return
	case StatusPass:
		return
	}

	for _, f := range o.Failures {
		t.Errorf("%s: %s", prefix, f)
	}
	for _, m := range o.Comparison.Mismatches {
		t.Errorf("%s: %v", prefix, m)
	}
	if hidden := o.Comparison.Total - len(o.Comparison.Mismatches); hidden > 0 {
		t.Errorf("%s: %d more mismatches (%d in total)", prefix, hidden, o.Comparison.Total)
	}
}

func (h *Harness) fatal(t testing.TB, msg string) {
	t.Helper()
	h.report.AddError(msg)
	h.logger.Error("model failed", "error", msg)
	t.Errorf("%s", msg)
	h.record(t)
}

func (h *Harness) record(t testing.TB) {
	t.Helper()
	if h.recorder == nil {
		return
	}
	if err := h.recorder.RecordReport(h.ctx, h.report); err != nil {
		t.Errorf("record report: %v", err)
	}
}
