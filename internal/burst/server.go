package burst

import (
	"context"
	"sync"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/memory"
)

// ExecuteFunc runs one resolved request on the device.
type ExecuteFunc func(ctx context.Context, req device.Request, measure device.MeasureTiming) (device.ErrorStatus, []device.OutputShape, device.Timing)

// Server is the device side of a burst. It implements device.BurstContext.
type Server struct {
	cb   device.BurstCallback
	exec ExecuteFunc
	done chan struct{}

	mu    sync.Mutex
	cache map[int32]*memory.Pool
}

// Serve starts answering requests until the request channel is closed.
func Serve(ctx context.Context, cb device.BurstCallback, requests <-chan device.BurstRequest, results chan<- device.BurstResult, exec ExecuteFunc) *Server {
	s := &Server{
		cb:    cb,
		exec:  exec,
		done:  make(chan struct{}),
		cache: map[int32]*memory.Pool{},
	}
	go s.loop(ctx, requests, results)
	return s
}

func (s *Server) loop(ctx context.Context, requests <-chan device.BurstRequest, results chan<- device.BurstResult) {
	defer close(s.done)
	for req := range requests {
		results <- s.handle(ctx, req)
	}
}

func (s *Server) handle(ctx context.Context, msg device.BurstRequest) device.BurstResult {
	failed := device.BurstResult{Status: device.StatusGeneralFailure, Timing: device.UnknownTiming()}

	pools, ok := s.resolve(msg.Slots)
	if !ok {
		return failed
	}
	req := device.Request{Inputs: msg.Inputs, Outputs: msg.Outputs, Pools: pools}
	status, shapes, timing := s.exec(ctx, req, msg.Measure)
	return device.BurstResult{Status: status, Shapes: shapes, Timing: timing}
}

// resolve maps slots to pools, asking the controller for the ones not cached.
func (s *Server) resolve(slots []int32) ([]*memory.Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []int32
	for _, slot := range slots {
		if _, ok := s.cache[slot]; !ok {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		status, pools := s.cb.GetMemories(missing)
		if status != device.StatusNone || len(pools) != len(missing) {
			return nil, false
		}
		for i, slot := range missing {
			s.cache[slot] = pools[i]
		}
	}

	out := make([]*memory.Pool, len(slots))
	for i, slot := range slots {
		out[i] = s.cache[slot]
	}
	return out, true
}

// Cached reports whether slot is in the memory cache.
func (s *Server) Cached(slot int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache[slot]
	return ok
}

// FreeMemory drops one cached slot.
func (s *Server) FreeMemory(slot int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, slot)
}

// Close waits for the serving goroutine to exit. The request channel must
// already be closed.
func (s *Server) Close() error {
	<-s.done
	return nil
}
