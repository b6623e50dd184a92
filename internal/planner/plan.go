// Package planner lays operands out in the shared memory pools of a request.
package planner

import (
	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/validate"
)

// Plan is the descriptor list for one pool and the pool's total size.
// Args is indexed by operand index.
type Plan struct {
	Args []device.RequestArgument
	Size uint32
}

// PlanInputs lays out every input operand in the input pool.
func PlanInputs(inputs *operand.Collection) Plan {
	args := describe(inputs, device.InputPool)
	return Plan{Args: args, Size: assignOffsets(args)}
}

// PlanOutputs lays out the output pool from the golden operands.
//
// With validate.Insufficient the buffer of operand 0 is shrunk by one byte.
// ok is false when operand 0 is missing or at most one byte long, in which
// case no undersized buffer exists and the example cannot be run.
func PlanOutputs(golden *operand.Collection, mode validate.OutputMode) (p Plan, ok bool) {
	args := describe(golden, device.OutputPool)
	if mode == validate.Insufficient {
		// Only operand 0 is probed. Other outputs are never shrunk, and an
		// example without operand 0 is skipped instead of run unshrunk.
		if len(args) == 0 || args[0].HasNoValue || args[0].Location.Length <= 1 {
			return Plan{}, false
		}
		args[0].Location.Length--
	}
	return Plan{Args: args, Size: assignOffsets(args)}, true
}

// describe records lengths and pool identity in index order. Offsets are
// assigned later, once every length is known.
func describe(c *operand.Collection, pool uint32) []device.RequestArgument {
	var args []device.RequestArgument
	c.ForAll(func(index int, _ operand.Kind, raw []byte) {
		if index >= len(args) {
			grown := make([]device.RequestArgument, index+1)
			copy(grown, args)
			for i := len(args); i < len(grown); i++ {
				grown[i] = device.RequestArgument{HasNoValue: true, Location: device.DataLocation{PoolIndex: pool}}
			}
			args = grown
		}
		if len(raw) == 0 {
			args[index] = device.RequestArgument{HasNoValue: true, Location: device.DataLocation{PoolIndex: pool}}
			return
		}
		args[index] = device.RequestArgument{
			Location: device.DataLocation{PoolIndex: pool, Length: uint32(len(raw))},
		}
	})
	return args
}

// assignOffsets is a prefix sum over the descriptors in emission order.
// It returns the pool size.
func assignOffsets(args []device.RequestArgument) uint32 {
	var offset uint32
	for i := range args {
		if args[i].HasNoValue {
			continue
		}
		args[i].Location.Offset = offset
		offset += args[i].Location.Length
	}
	return offset
}
