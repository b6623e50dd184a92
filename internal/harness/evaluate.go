package harness

import (
	"context"
	"log/slog"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/executor"
	"github.com/roach88/nnvts/internal/planner"
	"github.com/roach88/nnvts/internal/validate"
)

// Evaluate runs every example under one combination and returns one
// Outcome per example, in order. A failure or skip in one example does not
// stop the next one.
//
// Evaluate does not touch testing.TB, so it can drive a device outside of
// go test. Shared memory for each example is released before the next one
// starts.
//
// Parameters:
//   - ctx: passed to every device call
//   - prepared: the prepared model; Sync and Burst need a 1.2 model
//   - isIgnored: reports output operands excluded from comparison (may be nil)
//   - examples: inputs with their golden outputs
//   - combo: executor, timing request and output mode
//   - cfg: tolerances; used as is, without version defaults
//   - opts: only WithLogger is consulted
func Evaluate(ctx context.Context, prepared device.PreparedModel, isIgnored func(int) bool,
	examples []Example, combo Combination, cfg Config, opts ...Option) []Outcome {
	o := buildOptions(opts)
	e := evaluator{prepared: prepared, isIgnored: isIgnored, cfg: cfg, logger: o.logger}

	outcomes := make([]Outcome, 0, len(examples))
	for i, ex := range examples {
		outcomes = append(outcomes, e.example(ctx, combo, i+1, ex))
	}
	return outcomes
}

type evaluator struct {
	prepared  device.PreparedModel
	isIgnored func(int) bool
	cfg       Config
	logger    *slog.Logger
}

func (e evaluator) example(ctx context.Context, combo Combination, n int, ex Example) (out Outcome) {
	out = Outcome{Combination: combo, Example: n, Status: StatusPass, Timing: device.UnknownTiming()}
	logger := e.logger.With("combination", combo.String(), "example", n)

	tol := validate.ToleranceFor(e.cfg.Tolerance, e.cfg.RelaxedTolerance, e.cfg.RelaxComputation, ex.Inputs)

	inPlan := planner.PlanInputs(ex.Inputs)
	outPlan, ok := planner.PlanOutputs(ex.Golden, combo.Mode)
	if !ok {
		out.Status = StatusSkip
		out.Reason = "output 0 is too small for an undersized buffer"
		logger.Info("example skipped", "reason", out.Reason)
		return out
	}

	layout, err := planner.NewLayout(ex.Inputs, inPlan, outPlan)
	if err != nil {
		out.fail("lay out shared memory: %v", err)
		return out
	}
	defer func() {
		if err := layout.Close(); err != nil {
			logger.Warn("release shared memory", "error", err)
		}
	}()

	res, err := executor.Dispatch(ctx, e.prepared, combo.Executor, layout.Request(), combo.Measure)
	if err != nil {
		out.fail("execute: %v", err)
		return out
	}
	out.Timing = res.Timing

	verdict := validate.CheckExecution(combo.Mode, combo.Measure, validate.Execution(res), ex.Golden.Len())
	for _, f := range verdict.Failures {
		out.fail("%s", f)
	}
	switch verdict.Action {
	case validate.Skip:
		out.Status = StatusSkip
		out.Reason = verdict.Reason
		logger.Info("example skipped", "reason", verdict.Reason, "status", res.Status.String())
		return out
	case validate.Stop, validate.Abort:
		return out
	}

	result := ex.Golden.ResizeLike()
	validate.ApplyShapes(result, res.Shapes)
	if err := validate.CopyBack(result, layout.Outputs.Args, layout.Out.Bytes()); err != nil {
		out.fail("copy back outputs: %v", err)
		return out
	}

	out.Comparison = validate.Compare(ex.Golden.Filter(e.isIgnored), result.Filter(e.isIgnored), tol)
	if ex.MultinomialTolerance > 0 {
		out.Comparison.Merge(validate.ExpectMultinomial(ex.Inputs, result, float64(ex.MultinomialTolerance)))
	}
	if !out.Comparison.OK() {
		out.Status = StatusFail
	}
	logger.Debug("example evaluated", "status", string(out.Status), "mismatches", out.Comparison.Total)
	return out
}
