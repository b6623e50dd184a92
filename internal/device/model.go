package device

import (
	"fmt"

	"github.com/roach88/nnvts/internal/operand"
)

// OperationType names a model operation.
type OperationType string

const (
	OpAdd               OperationType = "ADD"
	OpMul               OperationType = "MUL"
	OpRandomMultinomial OperationType = "RANDOM_MULTINOMIAL"
)

// Lifetime says where an operand's value comes from.
type Lifetime int

const (
	LifetimeTemporary Lifetime = iota
	LifetimeModelInput
	LifetimeModelOutput
)

// Operand declares one tensor of a model. A zero entry in Dimensions, or
// nil Dimensions on a non-scalar, means the size is only known at execution.
type Operand struct {
	Type       operand.Kind
	Dimensions []uint32
	Lifetime   Lifetime
}

// FullySpecified reports whether every dimension is known.
func (o Operand) FullySpecified() bool {
	for _, d := range o.Dimensions {
		if d == 0 {
			return false
		}
	}
	return true
}

// Operation is one node of the model graph.
type Operation struct {
	Type    OperationType
	Inputs  []uint32
	Outputs []uint32
}

// Model is handed to the device unchanged. The harness only reads
// RelaxComputationFloat32toFloat16; everything else is for the device.
type Model struct {
	Operands      []Operand
	Operations    []Operation
	InputIndexes  []uint32
	OutputIndexes []uint32

	// RelaxComputationFloat32toFloat16 permits float32 math in half precision.
	RelaxComputationFloat32toFloat16 bool
}

// Validate checks that every index the model references exists.
func (m Model) Validate() error {
	n := uint32(len(m.Operands))
	check := func(what string, idx uint32) error {
		if idx >= n {
			return fmt.Errorf("%s references operand %d, model has %d", what, idx, n)
		}
		return nil
	}
	for i, idx := range m.InputIndexes {
		if err := check(fmt.Sprintf("input %d", i), idx); err != nil {
			return err
		}
	}
	for i, idx := range m.OutputIndexes {
		if err := check(fmt.Sprintf("output %d", i), idx); err != nil {
			return err
		}
	}
	for i, op := range m.Operations {
		for _, idx := range op.Inputs {
			if err := check(fmt.Sprintf("operation %d (%s)", i, op.Type), idx); err != nil {
				return err
			}
		}
		for _, idx := range op.Outputs {
			if err := check(fmt.Sprintf("operation %d (%s)", i, op.Type), idx); err != nil {
				return err
			}
		}
	}
	if len(m.Operations) == 0 {
		return fmt.Errorf("model has no operations")
	}
	return nil
}
