package device

import (
	"context"

	"github.com/roach88/nnvts/internal/memory"
)

// DeviceV1_0 is the 1.0 device interface.
type DeviceV1_0 interface {
	// GetSupportedOperations returns one entry per model operation.
	GetSupportedOperations(ctx context.Context, model Model) (ErrorStatus, []bool, error)
	// PrepareModel launches preparation; the result arrives on cb.
	PrepareModel(ctx context.Context, model Model, cb *PreparedModelCallback) (ErrorStatus, error)
}

// DeviceV1_1 adds relaxed float models and execution preferences.
type DeviceV1_1 interface {
	GetSupportedOperationsV1_1(ctx context.Context, model Model) (ErrorStatus, []bool, error)
	PrepareModelV1_1(ctx context.Context, model Model, pref ExecutionPreference, cb *PreparedModelCallback) (ErrorStatus, error)
}

// DeviceV1_2 adds dynamic output shapes, timing and the newer prepared model.
type DeviceV1_2 interface {
	GetSupportedOperationsV1_2(ctx context.Context, model Model) (ErrorStatus, []bool, error)
	PrepareModelV1_2(ctx context.Context, model Model, pref ExecutionPreference, cb *PreparedModelCallback) (ErrorStatus, error)
}

// PreparedModel is the 1.0 prepared model: asynchronous execution only.
type PreparedModel interface {
	Execute(ctx context.Context, req Request, cb *ExecutionCallback) (ErrorStatus, error)
}

// PreparedModelV1_2 adds timing, synchronous execution and bursts.
type PreparedModelV1_2 interface {
	PreparedModel

	ExecuteV1_2(ctx context.Context, req Request, measure MeasureTiming, cb *ExecutionCallback) (ErrorStatus, error)
	ExecuteSynchronously(ctx context.Context, req Request, measure MeasureTiming) (ErrorStatus, []OutputShape, Timing, error)

	// ConfigureExecutionBurst opens a burst. The device reads requests until
	// the channel is closed and answers each one on results, in order.
	ConfigureExecutionBurst(ctx context.Context, cb BurstCallback, requests <-chan BurstRequest, results chan<- BurstResult) (ErrorStatus, BurstContext, error)
}

// BurstRequest is one execution sent over a burst. Pools are named by
// slot; the device resolves unknown slots through BurstCallback.
type BurstRequest struct {
	Inputs  []RequestArgument
	Outputs []RequestArgument
	Slots   []int32
	Measure MeasureTiming
}

// BurstResult answers one BurstRequest.
type BurstResult struct {
	Status ErrorStatus
	Shapes []OutputShape
	Timing Timing
}

// BurstCallback is implemented by the harness side of a burst.
type BurstCallback interface {
	GetMemories(slots []int32) (ErrorStatus, []*memory.Pool)
}

// BurstContext is the device side of an open burst.
type BurstContext interface {
	// FreeMemory drops a cached slot mapping.
	FreeMemory(slot int32)
	// Close waits for the device to stop serving the burst.
	Close() error
}
