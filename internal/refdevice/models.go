package refdevice

import (
	"slices"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// BinaryModel builds out = op(in0, in1) over tensors of one kind.
// Zero entries in outDims leave the output shape to the device.
func BinaryModel(op device.OperationType, kind operand.Kind, dims, outDims []uint32) device.Model {
	return device.Model{
		Operands: []device.Operand{
			{Type: kind, Dimensions: slices.Clone(dims), Lifetime: device.LifetimeModelInput},
			{Type: kind, Dimensions: slices.Clone(dims), Lifetime: device.LifetimeModelInput},
			{Type: kind, Dimensions: slices.Clone(outDims), Lifetime: device.LifetimeModelOutput},
		},
		Operations:    []device.Operation{{Type: op, Inputs: []uint32{0, 1}, Outputs: []uint32{2}}},
		InputIndexes:  []uint32{0, 1},
		OutputIndexes: []uint32{2},
	}
}

// MultinomialModel builds samples = RANDOM_MULTINOMIAL(logits, count) with
// float32 logits of shape [batches, classes].
func MultinomialModel(batches, classes, samples uint32) device.Model {
	return device.Model{
		Operands: []device.Operand{
			{Type: operand.Float32, Dimensions: []uint32{batches, classes}, Lifetime: device.LifetimeModelInput},
			{Type: operand.Int32, Dimensions: []uint32{}, Lifetime: device.LifetimeModelInput},
			{Type: operand.Int32, Dimensions: []uint32{batches, samples}, Lifetime: device.LifetimeModelOutput},
		},
		Operations: []device.Operation{
			{Type: device.OpRandomMultinomial, Inputs: []uint32{0, 1}, Outputs: []uint32{2}},
		},
		InputIndexes:  []uint32{0, 1},
		OutputIndexes: []uint32{2},
	}
}
