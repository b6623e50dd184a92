// Package testutil holds deterministic stand-ins for time and identity.
package testutil

import (
	"fmt"
	"sync"
)

// DeterministicClock is a microsecond clock that advances by a fixed step
// on every read. Two runs that read it the same number of times see the
// same timings.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	now  uint64
	step uint64
}

// NewDeterministicClock creates a clock at 0 that advances step
// microseconds per read. A zero step is treated as 1.
func NewDeterministicClock(step uint64) *DeterministicClock {
	if step == 0 {
		step = 1
	}
	return &DeterministicClock{step: step}
}

// Now advances the clock by one step and returns the new reading.
func (c *DeterministicClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the last reading without advancing.
func (c *DeterministicClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset returns the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}

// SequentialIDs hands out prefix-0001, prefix-0002, ... for stores and
// reports that need stable identifiers in tests.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "id".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next identifier.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
