package planner

import (
	"errors"
	"fmt"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/memory"
	"github.com/roach88/nnvts/internal/operand"
)

// Layout owns the two pools of one execution.
type Layout struct {
	Inputs  Plan
	Outputs Plan
	In      *memory.Pool
	Out     *memory.Pool
}

// NewLayout allocates pools sized to the plans and copies the input bytes
// into place. The caller must Close the layout.
func NewLayout(inputs *operand.Collection, in, out Plan) (*Layout, error) {
	inPool, err := memory.Allocate(in.Size)
	if err != nil {
		return nil, fmt.Errorf("input pool: %w", err)
	}
	outPool, err := memory.Allocate(out.Size)
	if err != nil {
		_ = inPool.Close()
		return nil, fmt.Errorf("output pool: %w", err)
	}
	l := &Layout{Inputs: in, Outputs: out, In: inPool, Out: outPool}

	var copyErr error
	inputs.ForAll(func(index int, kind operand.Kind, raw []byte) {
		if copyErr != nil || len(raw) == 0 {
			return
		}
		loc := in.Args[index].Location
		dst, err := inPool.Slice(loc.Offset, loc.Length)
		if err != nil {
			copyErr = fmt.Errorf("input %s operand %d: %w", kind, index, err)
			return
		}
		copy(dst, raw)
	})
	if copyErr != nil {
		_ = l.Close()
		return nil, copyErr
	}
	return l, nil
}

// Request binds the plans to the pools.
func (l *Layout) Request() device.Request {
	return device.Request{
		Inputs:  l.Inputs.Args,
		Outputs: l.Outputs.Args,
		Pools:   []*memory.Pool{l.In, l.Out},
	}
}

// Output returns the bytes the device wrote for output operand index.
func (l *Layout) Output(index int) ([]byte, error) {
	if index < 0 || index >= len(l.Outputs.Args) || l.Outputs.Args[index].HasNoValue {
		return nil, fmt.Errorf("output operand %d has no descriptor", index)
	}
	loc := l.Outputs.Args[index].Location
	return l.Out.Slice(loc.Offset, loc.Length)
}

// Close unmaps both pools.
func (l *Layout) Close() error {
	return errors.Join(l.In.Close(), l.Out.Close())
}
