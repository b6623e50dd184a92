// Package prepare asks a device to prepare a model and interprets the
// answer. A device that admits it cannot run some operation of the model
// may decline to prepare it; that is a Skip, not a failure.
package prepare

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/nnvts/internal/device"
)

// Kind classifies an Outcome.
type Kind int

const (
	Prepared Kind = iota
	Skip
	Fail
)

func (k Kind) String() string {
	switch k {
	case Prepared:
		return "prepared"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Outcome is the result of preparing one model.
type Outcome struct {
	Kind Kind
	// Prepared is set only when Kind is Prepared.
	Prepared device.PreparedModel
	// FullySupported is the conjunction of the supported-operations vector.
	FullySupported bool
	// Reason explains a Skip.
	Reason string
	// Err explains a Fail.
	Err error
}

func failed(err error) Outcome {
	return Outcome{Kind: Fail, Err: err}
}

type supportQuery func(ctx context.Context, model device.Model) (device.ErrorStatus, []bool, error)

type prepareLaunch func(ctx context.Context, model device.Model, cb *device.PreparedModelCallback) (device.ErrorStatus, error)

// V1_0 prepares model on a 1.0 device.
func V1_0(ctx context.Context, dev device.DeviceV1_0, model device.Model) Outcome {
	return run(ctx, model, dev.GetSupportedOperations, dev.PrepareModel)
}

// V1_1 prepares model on a 1.1 device with the given preference.
func V1_1(ctx context.Context, dev device.DeviceV1_1, model device.Model, pref device.ExecutionPreference) Outcome {
	launch := func(ctx context.Context, m device.Model, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
		return dev.PrepareModelV1_1(ctx, m, pref, cb)
	}
	return run(ctx, model, dev.GetSupportedOperationsV1_1, launch)
}

// V1_2 prepares model on a 1.2 device with the given preference. The
// prepared model must implement device.PreparedModelV1_2.
func V1_2(ctx context.Context, dev device.DeviceV1_2, model device.Model, pref device.ExecutionPreference) Outcome {
	launch := func(ctx context.Context, m device.Model, cb *device.PreparedModelCallback) (device.ErrorStatus, error) {
		return dev.PrepareModelV1_2(ctx, m, pref, cb)
	}
	out := run(ctx, model, dev.GetSupportedOperationsV1_2, launch)
	if out.Kind != Prepared {
		return out
	}
	if _, ok := out.Prepared.(device.PreparedModelV1_2); !ok {
		return failed(errors.New("prepared model does not implement the 1.2 interface"))
	}
	return out
}

func run(ctx context.Context, model device.Model, query supportQuery, launch prepareLaunch) Outcome {
	status, supported, err := query(ctx, model)
	if err != nil {
		return failed(fmt.Errorf("get supported operations: %w", err))
	}
	if status != device.StatusNone {
		return failed(&device.StatusError{Op: "getSupportedOperations", Status: status})
	}
	if len(supported) == 0 {
		return failed(errors.New("get supported operations: empty support vector"))
	}
	fully := true
	for _, ok := range supported {
		fully = fully && ok
	}

	cb := device.NewPreparedModelCallback()
	status, err = launch(ctx, model, cb)
	if err != nil {
		return failed(fmt.Errorf("launch prepare model: %w", err))
	}
	if status != device.StatusNone {
		return failed(&device.StatusError{Op: "prepareModel launch", Status: status})
	}

	cb.Wait()
	status = cb.Status()
	prepared := cb.PreparedModel()

	out := interpret(fully, status, prepared)
	out.FullySupported = fully
	return out
}

// interpret judges the completion status together with full support.
func interpret(fully bool, status device.ErrorStatus, prepared device.PreparedModel) Outcome {
	switch {
	case !fully && status != device.StatusNone:
		if prepared != nil {
			return failed(fmt.Errorf("prepare model returned %s with a prepared model", status))
		}
		return Outcome{Kind: Skip, Reason: "device cannot prepare a model it does not fully support"}
	case status != device.StatusNone:
		return failed(&device.StatusError{Op: "prepareModel", Status: status})
	case prepared == nil:
		return failed(errors.New("prepare model returned NONE without a prepared model"))
	}
	return Outcome{Kind: Prepared, Prepared: prepared}
}
