package testcase

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// FieldError locates one problem in a test-case file.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var operationTypes = map[string]device.OperationType{
	string(device.OpAdd):               device.OpAdd,
	string(device.OpMul):               device.OpMul,
	string(device.OpRandomMultinomial): device.OpRandomMultinomial,
}

// integerRange bounds the values of each integer kind. Float kinds are
// absent.
var integerRange = map[operand.Kind][2]float64{
	operand.Int32:                {math.MinInt32, math.MaxInt32},
	operand.Quant8Asymm:          {0, math.MaxUint8},
	operand.Quant16Symm:          {math.MinInt16, math.MaxInt16},
	operand.Bool8:                {0, 1},
	operand.Quant8SymmPerChannel: {math.MinInt8, math.MaxInt8},
	operand.Quant16Asymm:         {0, math.MaxUint16},
	operand.Quant8Symm:           {math.MinInt8, math.MaxInt8},
}

// Validate checks f and returns every problem found, in file order.
func Validate(f *File) []error {
	v := &validator{}
	v.file(f)
	return v.errs
}

type validator struct {
	errs []error
}

func (v *validator) addf(field, format string, args ...any) {
	v.errs = append(v.errs, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) file(f *File) {
	if f.Name == "" {
		v.addf("name", "is required")
	}
	if f.Tolerance != nil && (f.Tolerance.Atol < 0 || f.Tolerance.Rtol < 0) {
		v.addf("tolerance", "atol and rtol must not be negative")
	}

	kinds := v.model(f.Model)

	for i, idx := range f.IgnoredOutputs {
		if idx < 0 || idx >= len(f.Model.Outputs) {
			v.addf(fmt.Sprintf("ignored_outputs[%d]", i), "output %d does not exist, model has %d", idx, len(f.Model.Outputs))
		}
	}

	if len(f.Examples) == 0 {
		v.addf("examples", "at least one example is required")
	}
	for i, ex := range f.Examples {
		field := fmt.Sprintf("examples[%d]", i)
		v.buffers(field+".inputs", ex.Inputs, f.Model, f.Model.Inputs, kinds)
		v.buffers(field+".outputs", ex.Outputs, f.Model, f.Model.Outputs, kinds)
		if ex.MultinomialTolerance < 0 || ex.MultinomialTolerance > 1 {
			v.addf(field+".multinomial_tolerance", "%g is outside [0, 1]", ex.MultinomialTolerance)
		}
	}
}

// model checks the graph and returns the parsed kind of each operand.
// Operands whose kind does not parse are left out of the map.
func (v *validator) model(m ModelSpec) map[uint32]operand.Kind {
	kinds := map[uint32]operand.Kind{}
	for i, op := range m.Operands {
		k, err := operand.ParseKind(op.Type)
		if err != nil {
			v.addf(fmt.Sprintf("model.operands[%d].type", i), "%v", err)
			continue
		}
		kinds[uint32(i)] = k
	}

	n := uint32(len(m.Operands))
	checkIndexes := func(field string, idxs []uint32) {
		for j, idx := range idxs {
			if idx >= n {
				v.addf(fmt.Sprintf("%s[%d]", field, j), "operand %d does not exist, model has %d", idx, n)
			}
		}
	}

	if len(m.Operations) == 0 {
		v.addf("model.operations", "at least one operation is required")
	}
	for i, op := range m.Operations {
		field := fmt.Sprintf("model.operations[%d]", i)
		if _, ok := operationTypes[op.Type]; !ok {
			v.addf(field+".type", "unknown operation %q", op.Type)
		}
		checkIndexes(field+".inputs", op.Inputs)
		checkIndexes(field+".outputs", op.Outputs)
	}
	if len(m.Outputs) == 0 {
		v.addf("model.outputs", "at least one output is required")
	}
	checkIndexes("model.inputs", m.Inputs)
	checkIndexes("model.outputs", m.Outputs)
	return kinds
}

func (v *validator) buffers(field string, bufs []BufferSpec, m ModelSpec, positions []uint32, kinds map[uint32]operand.Kind) {
	seen := map[int]bool{}
	for i, b := range bufs {
		bf := fmt.Sprintf("%s[%d]", field, i)
		if b.Index < 0 || b.Index >= len(positions) {
			v.addf(bf+".index", "position %d does not exist, model has %d", b.Index, len(positions))
			continue
		}
		if seen[b.Index] {
			v.addf(bf+".index", "position %d appears twice", b.Index)
		}
		seen[b.Index] = true

		kind, err := operand.ParseKind(b.Type)
		if err != nil {
			v.addf(bf+".type", "%v", err)
			continue
		}
		opIdx := positions[b.Index]
		if want, ok := kinds[opIdx]; ok && want != kind {
			v.addf(bf+".type", "model operand %d is %s, buffer is %s", opIdx, want, kind)
		}

		if b.Dimensions != nil {
			if n := elementCount(b.Dimensions); n != len(b.Values) {
				v.addf(bf, "dimensions %v hold %d elements, %d values given", b.Dimensions, n, len(b.Values))
			}
		} else if int(opIdx) < len(m.Operands) {
			declared := device.Operand{Dimensions: m.Operands[opIdx].Dimensions}
			if len(declared.Dimensions) > 0 && declared.FullySpecified() {
				if n := elementCount(declared.Dimensions); n != len(b.Values) {
					v.addf(bf, "model operand %d holds %d elements, %d values given", opIdx, n, len(b.Values))
				}
			}
		}

		if err := checkValues(kind, b.Values); err != nil {
			v.addf(bf+".values", "%v", err)
		}
	}
}

func elementCount(dims []uint32) int {
	n := 1
	for _, d := range dims {
		n *= int(d)
	}
	return n
}

func checkValues(kind operand.Kind, values []float64) error {
	bounds, ok := integerRange[kind]
	if !ok {
		return nil
	}
	var errs []error
	for i, x := range values {
		switch {
		case x != math.Trunc(x):
			errs = append(errs, fmt.Errorf("[%d] %g is not an integer", i, x))
		case x < bounds[0] || x > bounds[1]:
			errs = append(errs, fmt.Errorf("[%d] %g is outside the %s range [%g, %g]", i, x, kind, bounds[0], bounds[1]))
		}
	}
	return errors.Join(errs...)
}
