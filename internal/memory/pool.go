// Package memory allocates the shared memory pools handed to a device.
//
// Pools are anonymous MAP_SHARED mappings so a device implementation that
// forks or shares the mapping sees the same bytes the harness wrote. Each
// pool carries a random key that stays stable for the life of the process;
// burst executions use it to recognise pools they have already mapped.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrClosed is returned when a pool is used after Close.
var ErrClosed = errors.New("memory: pool closed")

// Key identifies a pool across burst executions.
type Key = uuid.UUID

// Pool is one shared memory region.
type Pool struct {
	mu     sync.Mutex
	key    Key
	data   []byte
	closed bool
}

// Allocate maps a zeroed shared region of exactly size bytes.
// A zero size yields a valid, empty pool with no mapping behind it.
func Allocate(size uint32) (*Pool, error) {
	p := &Pool{key: uuid.New()}
	if size == 0 {
		p.data = []byte{}
		return p, nil
	}

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("allocate shared memory (%d bytes): %w", size, err)
	}
	p.data = data
	return p, nil
}

// Key returns the pool's process-stable identity.
func (p *Pool) Key() Key {
	return p.key
}

// Size returns the mapped length in bytes.
func (p *Pool) Size() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint32(len(p.data))
}

// Bytes returns the mapped region. The slice is invalid after Close.
func (p *Pool) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return p.data
}

// Slice returns length bytes starting at offset, bounds checked.
func (p *Pool) Slice(offset, length uint32) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	end := uint64(offset) + uint64(length)
	if end > uint64(len(p.data)) {
		return nil, fmt.Errorf("memory: range [%d, %d) outside pool of %d bytes", offset, end, len(p.data))
	}
	return p.data[offset:end:end], nil
}

// Close unmaps the region. It is safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	data := p.data
	p.data = nil
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unmap shared memory: %w", err)
	}
	return nil
}
