package refdevice

import (
	"context"

	"github.com/roach88/nnvts/internal/burst"
	"github.com/roach88/nnvts/internal/device"
)

// PreparedModel implements device.PreparedModelV1_2.
type PreparedModel struct {
	dev   *Device
	model device.Model
}

// preparedV1_0 hides the 1.2 methods of a model prepared through an older
// interface.
type preparedV1_0 struct {
	p *PreparedModel
}

func (w preparedV1_0) Execute(ctx context.Context, req device.Request, cb *device.ExecutionCallback) (device.ErrorStatus, error) {
	return w.p.Execute(ctx, req, cb)
}

func (p *PreparedModel) launch() (device.ErrorStatus, error) {
	if p.dev.transportErr != nil {
		return device.StatusGeneralFailure, p.dev.transportErr
	}
	return p.dev.launchStatus, nil
}

// Execute is the 1.0 launch: the callback gets a status only.
func (p *PreparedModel) Execute(ctx context.Context, req device.Request, cb *device.ExecutionCallback) (device.ErrorStatus, error) {
	if status, err := p.launch(); err != nil || status != device.StatusNone {
		return status, err
	}
	go func() {
		status, _, _ := p.run(ctx, req, device.MeasureNo)
		_ = cb.Notify(status)
	}()
	return device.StatusNone, nil
}

func (p *PreparedModel) ExecuteV1_2(ctx context.Context, req device.Request, measure device.MeasureTiming, cb *device.ExecutionCallback) (device.ErrorStatus, error) {
	if status, err := p.launch(); err != nil || status != device.StatusNone {
		return status, err
	}
	go func() {
		status, shapes, timing := p.run(ctx, req, measure)
		_ = cb.NotifyV1_2(status, shapes, timing)
	}()
	return device.StatusNone, nil
}

func (p *PreparedModel) ExecuteSynchronously(ctx context.Context, req device.Request, measure device.MeasureTiming) (device.ErrorStatus, []device.OutputShape, device.Timing, error) {
	if p.dev.transportErr != nil {
		return device.StatusGeneralFailure, nil, device.UnknownTiming(), p.dev.transportErr
	}
	status, shapes, timing := p.run(ctx, req, measure)
	return status, shapes, timing, nil
}

func (p *PreparedModel) ConfigureExecutionBurst(ctx context.Context, cb device.BurstCallback,
	requests <-chan device.BurstRequest, results chan<- device.BurstResult) (device.ErrorStatus, device.BurstContext, error) {
	if p.dev.transportErr != nil {
		return device.StatusGeneralFailure, nil, p.dev.transportErr
	}
	return device.StatusNone, burst.Serve(ctx, cb, requests, results, p.run), nil
}

// run executes the model on req. Shapes are reported for every output when
// execution got far enough to know them.
func (p *PreparedModel) run(_ context.Context, req device.Request, measure device.MeasureTiming) (device.ErrorStatus, []device.OutputShape, device.Timing) {
	clock := p.dev.clock
	driverStart := clock.Now()
	fail := func(status device.ErrorStatus) (device.ErrorStatus, []device.OutputShape, device.Timing) {
		return status, nil, device.UnknownTiming()
	}

	if p.dev.rejectDynamic {
		for _, idx := range p.model.OutputIndexes {
			if !p.model.Operands[idx].FullySpecified() {
				p.dev.logger.Info("rejecting dynamic output shape", "operand", idx)
				return fail(device.StatusGeneralFailure)
			}
		}
	}

	values, err := readInputs(p.model, req)
	if err != nil {
		p.dev.logger.Warn("bad request", "error", err)
		return fail(device.StatusInvalidArgument)
	}

	deviceStart := clock.Now()
	for _, op := range p.model.Operations {
		if err := compute(p.model, op, values); err != nil {
			p.dev.logger.Warn("operation failed", "operation", string(op.Type), "error", err)
			return fail(device.StatusGeneralFailure)
		}
	}
	deviceEnd := clock.Now()

	if p.dev.perturb != 0 {
		for _, idx := range p.model.OutputIndexes {
			values[idx].perturb(float64(p.dev.perturb))
		}
	}

	shapes, sufficient, err := writeOutputs(p.model, req, values)
	if err != nil {
		p.dev.logger.Warn("bad request", "error", err)
		return fail(device.StatusInvalidArgument)
	}
	if !sufficient {
		return device.StatusOutputInsufficientSize, shapes, device.UnknownTiming()
	}

	timing := device.UnknownTiming()
	if measure == device.MeasureYes {
		timing = device.Timing{OnDevice: deviceEnd - deviceStart, InDriver: clock.Now() - driverStart}
	}
	if p.dev.badTiming {
		timing = device.Timing{OnDevice: 100, InDriver: 50}
	}
	return device.StatusNone, shapes, timing
}
