// Package executor drives one execution of a prepared model through one of
// three protocols: an asynchronous launch with a completion callback, a
// single blocking call, or a burst channel.
//
// The protocol is chosen by what the prepared model can do. A 1.0 prepared
// model only supports Async; asking it for Sync or Burst is an error
// wrapping ErrUnsupported.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/nnvts/internal/burst"
	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/memory"
)

// ErrUnsupported marks a protocol the prepared model's version lacks.
var ErrUnsupported = errors.New("executor: protocol not supported by prepared model")

// Executor names an execution protocol.
type Executor int

const (
	Async Executor = iota
	Sync
	Burst
)

func (e Executor) String() string {
	switch e {
	case Async:
		return "async"
	case Sync:
		return "sync"
	case Burst:
		return "burst"
	}
	return fmt.Sprintf("Executor(%d)", int(e))
}

// Result is what the device reported for one execution.
type Result struct {
	Status device.ErrorStatus
	Shapes []device.OutputShape
	Timing device.Timing
}

// Strategy runs a request with one protocol.
type Strategy interface {
	Execute(ctx context.Context, req device.Request, measure device.MeasureTiming) (Result, error)
}

// New returns the strategy for ex on prepared.
func New(prepared device.PreparedModel, ex Executor) (Strategy, error) {
	v12, isV12 := prepared.(device.PreparedModelV1_2)
	switch ex {
	case Async:
		if isV12 {
			return asyncV1_2{v12}, nil
		}
		return asyncV1_0{prepared}, nil
	case Sync:
		if !isV12 {
			return nil, fmt.Errorf("asking for synchronous execution at V1_0: %w", ErrUnsupported)
		}
		return syncV1_2{v12}, nil
	case Burst:
		if !isV12 {
			return nil, fmt.Errorf("asking for burst execution at V1_0: %w", ErrUnsupported)
		}
		return burstV1_2{v12}, nil
	}
	return nil, fmt.Errorf("unknown executor %s", ex)
}

// Dispatch runs req once with ex. A non-nil error is a failure of the
// protocol itself; device verdicts come back in Result.Status.
func Dispatch(ctx context.Context, prepared device.PreparedModel, ex Executor, req device.Request, measure device.MeasureTiming) (Result, error) {
	s, err := New(prepared, ex)
	if err != nil {
		return Result{}, err
	}
	return s.Execute(ctx, req, measure)
}

type asyncV1_0 struct {
	prepared device.PreparedModel
}

// Execute ignores measure: a 1.0 model never reports timing.
func (s asyncV1_0) Execute(ctx context.Context, req device.Request, _ device.MeasureTiming) (Result, error) {
	cb := device.NewExecutionCallback()
	status, err := s.prepared.Execute(ctx, req, cb)
	return awaitLaunch("execute", status, err, cb)
}

type asyncV1_2 struct {
	prepared device.PreparedModelV1_2
}

func (s asyncV1_2) Execute(ctx context.Context, req device.Request, measure device.MeasureTiming) (Result, error) {
	cb := device.NewExecutionCallback()
	status, err := s.prepared.ExecuteV1_2(ctx, req, measure, cb)
	return awaitLaunch("execute_1_2", status, err, cb)
}

// awaitLaunch waits on cb only when the launch itself succeeded.
func awaitLaunch(op string, status device.ErrorStatus, err error, cb *device.ExecutionCallback) (Result, error) {
	if err != nil {
		return Result{}, fmt.Errorf("launch %s: %w", op, err)
	}
	if status != device.StatusNone {
		return Result{}, &device.StatusError{Op: op, Status: status}
	}
	cb.Wait()
	return Result{Status: cb.Status(), Shapes: cb.OutputShapes(), Timing: cb.Timing()}, nil
}

type syncV1_2 struct {
	prepared device.PreparedModelV1_2
}

// Execute maps a transport failure to GENERAL_FAILURE.
func (s syncV1_2) Execute(ctx context.Context, req device.Request, measure device.MeasureTiming) (Result, error) {
	status, shapes, timing, err := s.prepared.ExecuteSynchronously(ctx, req, measure)
	if err != nil {
		return Result{Status: device.StatusGeneralFailure, Timing: device.UnknownTiming()}, nil
	}
	return Result{Status: status, Shapes: shapes, Timing: timing}, nil
}

type burstV1_2 struct {
	prepared device.PreparedModelV1_2
}

// Execute opens a burst, runs one compute and closes the burst again.
func (s burstV1_2) Execute(ctx context.Context, req device.Request, measure device.MeasureTiming) (_ Result, err error) {
	controller, err := burst.NewController(ctx, s.prepared)
	if err != nil {
		return Result{}, fmt.Errorf("create burst: %w", err)
	}
	defer func() {
		err = errors.Join(err, controller.Close())
	}()

	keys := make([]memory.Key, len(req.Pools))
	for i, p := range req.Pools {
		keys[i] = p.Key()
	}
	res, err := controller.Compute(ctx, req, measure, keys)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: res.Status, Shapes: res.Shapes, Timing: res.Timing}, nil
}
