package burst

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/memory"
)

// ErrClosed is returned by a Controller used after Close.
var ErrClosed = errors.New("burst: controller closed")

// Controller is the harness side of a burst.
type Controller struct {
	requests chan device.BurstRequest
	results  chan device.BurstResult
	remote   device.BurstContext

	mu     sync.Mutex
	slots  map[memory.Key]int32
	pools  map[int32]*memory.Pool
	next   int32
	closed bool
	broken error
}

// NewController configures a burst on prepared.
func NewController(ctx context.Context, prepared device.PreparedModelV1_2) (*Controller, error) {
	c := &Controller{
		requests: make(chan device.BurstRequest),
		results:  make(chan device.BurstResult, 1),
		slots:    map[memory.Key]int32{},
		pools:    map[int32]*memory.Pool{},
	}
	status, remote, err := prepared.ConfigureExecutionBurst(ctx, c, c.requests, c.results)
	if err != nil {
		return nil, fmt.Errorf("configure execution burst: %w", err)
	}
	if status != device.StatusNone || remote == nil {
		if remote != nil {
			close(c.requests)
			_ = remote.Close()
		}
		return nil, &device.StatusError{Op: "configureExecutionBurst", Status: status}
	}
	c.remote = remote
	return c, nil
}

// GetMemories answers the device's request for pools it has not cached.
func (c *Controller) GetMemories(slots []int32) (device.ErrorStatus, []*memory.Pool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*memory.Pool, len(slots))
	for i, slot := range slots {
		p, ok := c.pools[slot]
		if !ok {
			return device.StatusInvalidArgument, nil
		}
		out[i] = p
	}
	return device.StatusNone, out
}

// Compute runs one execution over the burst. keys[i] identifies
// req.Pools[i]; pools seen before keep their slot.
func (c *Controller) Compute(ctx context.Context, req device.Request, measure device.MeasureTiming, keys []memory.Key) (device.BurstResult, error) {
	if len(keys) != len(req.Pools) {
		return device.BurstResult{}, fmt.Errorf("burst compute: %d keys for %d pools", len(keys), len(req.Pools))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return device.BurstResult{}, ErrClosed
	}
	if c.broken != nil {
		c.mu.Unlock()
		return device.BurstResult{}, fmt.Errorf("burst compute: channel abandoned: %w", c.broken)
	}
	slots := make([]int32, len(keys))
	for i, key := range keys {
		slots[i] = c.slotFor(key, req.Pools[i])
	}
	c.mu.Unlock()

	msg := device.BurstRequest{Inputs: req.Inputs, Outputs: req.Outputs, Slots: slots, Measure: measure}
	select {
	case c.requests <- msg:
	case <-ctx.Done():
		return device.BurstResult{}, fmt.Errorf("burst compute: send request: %w", ctx.Err())
	}

	select {
	case res := <-c.results:
		return res, nil
	case <-ctx.Done():
		c.mu.Lock()
		c.broken = ctx.Err()
		c.mu.Unlock()
		return device.BurstResult{}, fmt.Errorf("burst compute: wait for result: %w", ctx.Err())
	}
}

// slotFor must be called with mu held.
func (c *Controller) slotFor(key memory.Key, pool *memory.Pool) int32 {
	if slot, ok := c.slots[key]; ok {
		c.pools[slot] = pool
		return slot
	}
	slot := c.next
	c.next++
	c.slots[key] = slot
	c.pools[slot] = pool
	return slot
}

// FreeMemory forgets a pool on both sides of the burst.
func (c *Controller) FreeMemory(key memory.Key) {
	c.mu.Lock()
	slot, ok := c.slots[key]
	if ok {
		delete(c.slots, key)
		delete(c.pools, slot)
	}
	closed := c.closed
	c.mu.Unlock()

	if ok && !closed {
		c.remote.FreeMemory(slot)
	}
}

// Close ends the burst and waits for the device side to stop.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.requests)
	return c.remote.Close()
}
