package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock(10)
	assert.Equal(t, uint64(0), clock.Current())
}

func TestDeterministicClock_AdvancesByStep(t *testing.T) {
	clock := NewDeterministicClock(10)

	assert.Equal(t, uint64(10), clock.Now())
	assert.Equal(t, uint64(20), clock.Now())
	assert.Equal(t, uint64(20), clock.Current())
}

func TestDeterministicClock_ZeroStep(t *testing.T) {
	clock := NewDeterministicClock(0)
	assert.Equal(t, uint64(1), clock.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(5)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, uint64(0), clock.Current())
	assert.Equal(t, uint64(5), clock.Now())
}

func TestDeterministicClock_Concurrent(t *testing.T) {
	clock := NewDeterministicClock(1)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(100), clock.Current())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("run")
	assert.Equal(t, "run-0001", ids.Next())
	assert.Equal(t, "run-0002", ids.Next())

	assert.Equal(t, "id-0001", NewSequentialIDs("").Next())
}
