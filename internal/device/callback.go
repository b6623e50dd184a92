package device

import (
	"errors"
	"slices"
	"sync"
)

// ErrAlreadyNotified is returned by a second Notify on a one-shot callback.
var ErrAlreadyNotified = errors.New("device: callback already notified")

// PreparedModelCallback carries the result of asynchronous preparation.
type PreparedModelCallback struct {
	mu       sync.Mutex
	done     chan struct{}
	notified bool
	status   ErrorStatus
	prepared PreparedModel
}

// NewPreparedModelCallback returns a callback that has not fired yet.
func NewPreparedModelCallback() *PreparedModelCallback {
	return &PreparedModelCallback{done: make(chan struct{})}
}

// Notify records the preparation outcome and releases waiters.
// Only the first call has any effect.
func (c *PreparedModelCallback) Notify(status ErrorStatus, prepared PreparedModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notified {
		return ErrAlreadyNotified
	}
	c.notified = true
	c.status = status
	c.prepared = prepared
	close(c.done)
	return nil
}

// Wait blocks until Notify has been called.
func (c *PreparedModelCallback) Wait() {
	<-c.done
}

// Status waits and returns the preparation status.
func (c *PreparedModelCallback) Status() ErrorStatus {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// PreparedModel waits and returns the prepared model, nil on failure.
func (c *PreparedModelCallback) PreparedModel() PreparedModel {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prepared
}

// ExecutionCallback carries the result of one asynchronous execution.
type ExecutionCallback struct {
	mu       sync.Mutex
	done     chan struct{}
	notified bool
	status   ErrorStatus
	shapes   []OutputShape
	timing   Timing
}

// NewExecutionCallback returns a callback that has not fired yet.
func NewExecutionCallback() *ExecutionCallback {
	return &ExecutionCallback{done: make(chan struct{}), timing: UnknownTiming()}
}

// Notify is the 1.0 completion: status only, no shapes, no timing.
func (c *ExecutionCallback) Notify(status ErrorStatus) error {
	return c.NotifyV1_2(status, nil, UnknownTiming())
}

// NotifyV1_2 records status, output shapes and timing.
//
// Shapes are only meaningful with NONE or OUTPUT_INSUFFICIENT_SIZE, and
// timing only with NONE. A device that reports them with any other status
// is downgraded to GENERAL_FAILURE with shapes and timing cleared.
func (c *ExecutionCallback) NotifyV1_2(status ErrorStatus, shapes []OutputShape, timing Timing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notified {
		return ErrAlreadyNotified
	}

	if status != StatusNone && status != StatusOutputInsufficientSize && len(shapes) > 0 {
		status, shapes, timing = StatusGeneralFailure, nil, UnknownTiming()
	}
	if status != StatusNone && (timing.OnDevice != TimingUnknown || timing.InDriver != TimingUnknown) {
		status, shapes, timing = StatusGeneralFailure, nil, UnknownTiming()
	}

	c.notified = true
	c.status = status
	c.shapes = cloneShapes(shapes)
	c.timing = timing
	close(c.done)
	return nil
}

// Wait blocks until a Notify call has been made.
func (c *ExecutionCallback) Wait() {
	<-c.done
}

// Status waits and returns the execution status.
func (c *ExecutionCallback) Status() ErrorStatus {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OutputShapes waits and returns the reported output shapes.
func (c *ExecutionCallback) OutputShapes() []OutputShape {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneShapes(c.shapes)
}

// Timing waits and returns the reported timing.
func (c *ExecutionCallback) Timing() Timing {
	c.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timing
}

func cloneShapes(shapes []OutputShape) []OutputShape {
	if shapes == nil {
		return nil
	}
	out := make([]OutputShape, len(shapes))
	for i, s := range shapes {
		out[i] = OutputShape{Dimensions: slices.Clone(s.Dimensions), IsSufficient: s.IsSufficient}
	}
	return out
}
