package refdevice

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// Clock reads microseconds.
type Clock interface {
	Now() uint64
}

type systemClock struct {
	start time.Time
}

func (c systemClock) Now() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

// Option configures a Device.
type Option func(*Device)

// WithUnsupported makes the device report ops as unsupported and refuse to
// prepare any model using them.
func WithUnsupported(ops ...device.OperationType) Option {
	return func(d *Device) {
		d.unsupported = append(d.unsupported, ops...)
	}
}

// WithPrepareFailure makes preparation fail even for supported models.
func WithPrepareFailure() Option {
	return func(d *Device) {
		d.prepareFailure = true
	}
}

// WithDynamicShapeRejection makes execution return GENERAL_FAILURE for
// models whose outputs are not fully specified.
func WithDynamicShapeRejection() Option {
	return func(d *Device) {
		d.rejectDynamic = true
	}
}

// WithLaunchFailure makes every asynchronous launch return status.
func WithLaunchFailure(status device.ErrorStatus) Option {
	return func(d *Device) {
		d.launchStatus = status
	}
}

// WithTransportError makes every call fail with err.
func WithTransportError(err error) Option {
	return func(d *Device) {
		d.transportErr = err
	}
}

// WithClock replaces the wall clock used for timing.
func WithClock(c Clock) Option {
	return func(d *Device) {
		d.clock = c
	}
}

// WithOutputPerturbation adds delta to every float output element.
func WithOutputPerturbation(delta float32) Option {
	return func(d *Device) {
		d.perturb = delta
	}
}

// WithInconsistentTiming reports on-device time above in-driver time on
// every execution, requested or not.
func WithInconsistentTiming() Option {
	return func(d *Device) {
		d.badTiming = true
	}
}

// WithLogger sets the device logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		d.logger = logger
	}
}

// Device implements the 1.0, 1.1 and 1.2 device interfaces.
type Device struct {
	unsupported    []device.OperationType
	prepareFailure bool
	rejectDynamic  bool
	launchStatus   device.ErrorStatus
	transportErr   error
	clock          Clock
	perturb        float32
	badTiming      bool
	logger         *slog.Logger
}

// New creates a device.
func New(opts ...Option) *Device {
	d := &Device{
		clock:  systemClock{start: time.Now()},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AsV1_0 exposes only the 1.0 interface.
func (d *Device) AsV1_0() device.DeviceV1_0 { return d }

// AsV1_1 exposes only the 1.1 interface.
func (d *Device) AsV1_1() device.DeviceV1_1 { return d }

// AsV1_2 exposes only the 1.2 interface.
func (d *Device) AsV1_2() device.DeviceV1_2 { return d }

func (d *Device) GetSupportedOperations(_ context.Context, model device.Model) (device.ErrorStatus, []bool, error) {
	if d.transportErr != nil {
		return device.StatusGeneralFailure, nil, d.transportErr
	}
	if err := model.Validate(); err != nil {
		return device.StatusInvalidArgument, nil, nil
	}
	supported := make([]bool, len(model.Operations))
	for i, op := range model.Operations {
		supported[i] = d.supports(model, op)
	}
	return device.StatusNone, supported, nil
}

func (d *Device) GetSupportedOperationsV1_1(ctx context.Context, model device.Model) (device.ErrorStatus, []bool, error) {
	return d.GetSupportedOperations(ctx, model)
}

func (d *Device) GetSupportedOperationsV1_2(ctx context.Context, model device.Model) (device.ErrorStatus, []bool, error) {
	return d.GetSupportedOperations(ctx, model)
}

func (d *Device) supports(model device.Model, op device.Operation) bool {
	if slices.Contains(d.unsupported, op.Type) {
		return false
	}
	kindOf := func(idx uint32) operand.Kind { return model.Operands[idx].Type }

	switch op.Type {
	case device.OpAdd, device.OpMul:
		if len(op.Inputs) != 2 || len(op.Outputs) != 1 {
			return false
		}
		k := kindOf(op.Inputs[0])
		return arithmeticKind(k) && kindOf(op.Inputs[1]) == k && kindOf(op.Outputs[0]) == k
	case device.OpRandomMultinomial:
		if len(op.Inputs) < 2 || len(op.Outputs) != 1 {
			return false
		}
		return kindOf(op.Inputs[0]).IsFloat() && kindOf(op.Inputs[1]) == operand.Int32 &&
			kindOf(op.Outputs[0]) == operand.Int32
	}
	return false
}

func arithmeticKind(k operand.Kind) bool {
	return k == operand.Float32 || k == operand.Int32 || k == operand.Float16
}

func (d *Device) PrepareModel(ctx context.Context, model device.Model, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	return d.prepare(ctx, model, device.V1_0, cb)
}

func (d *Device) PrepareModelV1_1(ctx context.Context, model device.Model, _ device.ExecutionPreference, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	return d.prepare(ctx, model, device.V1_1, cb)
}

func (d *Device) PrepareModelV1_2(ctx context.Context, model device.Model, _ device.ExecutionPreference, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	return d.prepare(ctx, model, device.V1_2, cb)
}

// prepare launches preparation and completes cb from another goroutine.
// Models prepared through 1.0 or 1.1 only expose the 1.0 prepared model.
func (d *Device) prepare(ctx context.Context, model device.Model, v device.Version, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
	if d.transportErr != nil {
		return device.StatusGeneralFailure, d.transportErr
	}
	if err := model.Validate(); err != nil {
		d.logger.Warn("rejecting invalid model", "error", err)
		return device.StatusInvalidArgument, nil
	}

	ok := !d.prepareFailure
	for _, op := range model.Operations {
		ok = ok && d.supports(model, op)
	}

	go func() {
		if !ok {
			_ = cb.Notify(device.StatusGeneralFailure, nil)
			return
		}
		p := &PreparedModel{dev: d, model: model}
		if v == device.V1_2 {
			_ = cb.Notify(device.StatusNone, p)
			return
		}
		_ = cb.Notify(device.StatusNone, preparedV1_0{p})
	}()
	d.logger.Debug("prepare launched", "version", string(v), "operations", len(model.Operations))
	return device.StatusNone, nil
}
