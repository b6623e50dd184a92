package validate

import (
	"fmt"
	"slices"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// ApplyShapes overwrites result dimensions with the shapes the device
// reported. Shape i belongs to output operand i; shapes for operands the
// result does not hold are ignored.
func ApplyShapes(result *operand.Collection, shapes []device.OutputShape) {
	if len(shapes) == 0 {
		return
	}
	present := map[int]bool{}
	for _, idx := range result.Indexes() {
		present[idx] = true
	}
	for idx := range result.Dimensions {
		present[idx] = true
	}
	for i, shape := range shapes {
		if present[i] {
			result.Dimensions[i] = slices.Clone(shape.Dimensions)
		}
	}
}

// CopyBack copies each result operand out of the output pool.
//
// Buffers are first sized to the element count implied by the operand's
// dimensions. The descriptor length must then hold exactly that many
// elements; any difference is an error. An operand with no value is
// accepted only when it holds zero elements.
func CopyBack(result *operand.Collection, args []device.RequestArgument, pool []byte) error {
	type slot struct {
		index int
		kind  operand.Kind
	}
	var slots []slot
	result.ForAll(func(index int, kind operand.Kind, _ []byte) {
		slots = append(slots, slot{index, kind})
	})

	for _, s := range slots {
		if n, ok := result.ElementCount(s.index); ok {
			if err := result.Resize(s.kind, s.index, n); err != nil {
				return err
			}
		}
		if s.index >= len(args) {
			return fmt.Errorf("copy back %s operand %d: no output descriptor", s.kind, s.index)
		}
		buf, _ := result.Bytes(s.kind, s.index)
		if args[s.index].HasNoValue {
			if len(buf) == 0 {
				continue
			}
			return fmt.Errorf("copy back %s operand %d: %d elements expected, output has no value",
				s.kind, s.index, len(buf)/s.kind.Size())
		}
		loc := args[s.index].Location
		if uint32(len(buf)) != loc.Length {
			return fmt.Errorf("copy back %s operand %d: %d elements expected, buffer holds %d",
				s.kind, s.index, len(buf)/s.kind.Size(), int(loc.Length)/s.kind.Size())
		}
		end := uint64(loc.Offset) + uint64(loc.Length)
		if end > uint64(len(pool)) {
			return fmt.Errorf("copy back %s operand %d: range [%d, %d) outside output pool of %d bytes",
				s.kind, s.index, loc.Offset, end, len(pool))
		}
		if err := result.CopyFrom(s.kind, s.index, pool[loc.Offset:end]); err != nil {
			return err
		}
	}
	return nil
}
