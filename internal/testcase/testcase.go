package testcase

import (
	"errors"
	"fmt"
	"slices"

	"github.com/x448/float16"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/harness"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/validate"
)

// TestCase is a validated test case ready to hand to the harness.
type TestCase struct {
	Name        string
	Description string
	Path        string
	// Digest identifies the test-case content. See Digest.
	Digest string

	DynamicShape bool
	// Tolerance overrides the version default when set.
	Tolerance *validate.Tolerance
	Examples  []harness.Example

	model   device.Model
	ignored map[int]bool
}

// Build validates f and converts it.
func Build(f *File) (*TestCase, error) {
	if errs := Validate(f); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	model := buildModel(f.Model)
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	digest, err := Digest(f)
	if err != nil {
		return nil, err
	}

	tc := &TestCase{
		Name:         f.Name,
		Description:  f.Description,
		Digest:       digest,
		DynamicShape: f.DynamicShape,
		Tolerance:    f.Tolerance,
		model:        model,
		ignored:      map[int]bool{},
	}
	for _, idx := range f.IgnoredOutputs {
		tc.ignored[idx] = true
	}
	for _, ex := range f.Examples {
		tc.Examples = append(tc.Examples, harness.Example{
			Inputs:               collection(ex.Inputs),
			Golden:               collection(ex.Outputs),
			MultinomialTolerance: ex.MultinomialTolerance,
		})
	}
	return tc, nil
}

// Model returns a fresh copy of the model. It has the signature the
// harness expects of createModel.
func (tc *TestCase) Model() device.Model {
	m := tc.model
	m.Operands = slices.Clone(m.Operands)
	for i := range m.Operands {
		m.Operands[i].Dimensions = slices.Clone(m.Operands[i].Dimensions)
	}
	m.Operations = slices.Clone(m.Operations)
	m.InputIndexes = slices.Clone(m.InputIndexes)
	m.OutputIndexes = slices.Clone(m.OutputIndexes)
	return m
}

// IsIgnored reports whether an output position is excluded from comparison.
func (tc *TestCase) IsIgnored(index int) bool {
	return tc.ignored[index]
}

// Config returns the harness configuration for v with the file's
// tolerance override applied.
func (tc *TestCase) Config(v device.Version) harness.Config {
	cfg := harness.DefaultConfig(v)
	if tc.Tolerance != nil {
		cfg.Tolerance = *tc.Tolerance
	}
	return cfg
}

func buildModel(spec ModelSpec) device.Model {
	m := device.Model{
		InputIndexes:                     slices.Clone(spec.Inputs),
		OutputIndexes:                    slices.Clone(spec.Outputs),
		RelaxComputationFloat32toFloat16: spec.RelaxComputation,
	}
	for _, op := range spec.Operands {
		kind, _ := operand.ParseKind(op.Type)
		m.Operands = append(m.Operands, device.Operand{Type: kind, Dimensions: slices.Clone(op.Dimensions)})
	}
	for _, idx := range spec.Inputs {
		m.Operands[idx].Lifetime = device.LifetimeModelInput
	}
	for _, idx := range spec.Outputs {
		m.Operands[idx].Lifetime = device.LifetimeModelOutput
	}
	for _, op := range spec.Operations {
		m.Operations = append(m.Operations, device.Operation{
			Type:    operationTypes[op.Type],
			Inputs:  slices.Clone(op.Inputs),
			Outputs: slices.Clone(op.Outputs),
		})
	}
	return m
}

// collection converts validated buffers to an operand collection.
func collection(bufs []BufferSpec) *operand.Collection {
	_ = [1]struct{}{}[operand.NumKinds-9]

	c := operand.New()
	for _, b := range bufs {
		kind, _ := operand.ParseKind(b.Type)
		switch kind {
		case operand.Float32:
			c.Float32[b.Index] = convert(b.Values, func(x float64) float32 { return float32(x) })
		case operand.Int32:
			c.Int32[b.Index] = convert(b.Values, func(x float64) int32 { return int32(x) })
		case operand.Quant8Asymm:
			c.Quant8Asymm[b.Index] = convert(b.Values, func(x float64) uint8 { return uint8(x) })
		case operand.Quant16Symm:
			c.Quant16Symm[b.Index] = convert(b.Values, func(x float64) int16 { return int16(x) })
		case operand.Float16:
			c.Float16[b.Index] = convert(b.Values, func(x float64) float16.Float16 { return operand.Half(float32(x)) })
		case operand.Bool8:
			c.Bool8[b.Index] = convert(b.Values, func(x float64) operand.Bool { return operand.Bool(x) })
		case operand.Quant8SymmPerChannel:
			c.Quant8SymmPerChannel[b.Index] = convert(b.Values, func(x float64) int8 { return int8(x) })
		case operand.Quant16Asymm:
			c.Quant16Asymm[b.Index] = convert(b.Values, func(x float64) uint16 { return uint16(x) })
		case operand.Quant8Symm:
			c.Quant8Symm[b.Index] = convert(b.Values, func(x float64) int8 { return int8(x) })
		}
		if b.Dimensions != nil {
			c.Dimensions[b.Index] = slices.Clone(b.Dimensions)
		}
	}
	return c
}

func convert[T operand.Element](values []float64, fn func(float64) T) []T {
	out := make([]T, len(values))
	for i, x := range values {
		out[i] = fn(x)
	}
	return out
}
