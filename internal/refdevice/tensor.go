package refdevice

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// tensor holds values widened to float64. Int32 values are exact.
type tensor struct {
	kind operand.Kind
	dims []uint32
	data []float64
}

func (t *tensor) perturb(delta float64) {
	if t == nil || !t.kind.IsFloat() {
		return
	}
	for i := range t.data {
		t.data[i] += delta
	}
}

func elements(dims []uint32) int {
	n := 1
	for _, d := range dims {
		n *= int(d)
	}
	return n
}

func decode(kind operand.Kind, raw []byte) ([]float64, error) {
	size := kind.Size()
	if size == 0 || len(raw)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %s elements", len(raw), kind)
	}
	out := make([]float64, len(raw)/size)
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch kind {
		case operand.Float32:
			out[i] = float64(math.Float32frombits(binary.NativeEndian.Uint32(b)))
		case operand.Int32:
			out[i] = float64(int32(binary.NativeEndian.Uint32(b)))
		case operand.Float16:
			out[i] = float64(float16.Frombits(binary.NativeEndian.Uint16(b)).Float32())
		default:
			return nil, fmt.Errorf("unsupported operand kind %s", kind)
		}
	}
	return out, nil
}

func encode(kind operand.Kind, data []float64, dst []byte) error {
	size := kind.Size()
	if len(dst) != len(data)*size {
		return fmt.Errorf("destination holds %d bytes, need %d", len(dst), len(data)*size)
	}
	for i, v := range data {
		b := dst[i*size : (i+1)*size]
		switch kind {
		case operand.Float32:
			binary.NativeEndian.PutUint32(b, math.Float32bits(float32(v)))
		case operand.Int32:
			binary.NativeEndian.PutUint32(b, uint32(int32(v)))
		case operand.Float16:
			binary.NativeEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
		default:
			return fmt.Errorf("unsupported operand kind %s", kind)
		}
	}
	return nil
}

func readInputs(model device.Model, req device.Request) (map[uint32]*tensor, error) {
	values := map[uint32]*tensor{}
	for i, idx := range model.InputIndexes {
		if i >= len(req.Inputs) {
			return nil, fmt.Errorf("request has %d inputs, model needs %d", len(req.Inputs), len(model.InputIndexes))
		}
		arg := req.Inputs[i]
		if arg.HasNoValue {
			return nil, fmt.Errorf("input %d has no value", i)
		}
		if int(arg.Location.PoolIndex) >= len(req.Pools) {
			return nil, fmt.Errorf("input %d: pool %d does not exist", i, arg.Location.PoolIndex)
		}
		raw, err := req.Pools[arg.Location.PoolIndex].Slice(arg.Location.Offset, arg.Location.Length)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		op := model.Operands[idx]
		data, err := decode(op.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		dims := op.Dimensions
		if len(arg.Dimensions) > 0 {
			dims = arg.Dimensions
		}
		if !(device.Operand{Dimensions: dims}).FullySpecified() || (len(dims) == 0 && len(data) != 1) {
			dims = []uint32{uint32(len(data))}
		}
		if elements(dims) != len(data) {
			return nil, fmt.Errorf("input %d: dimensions %v do not hold %d elements", i, dims, len(data))
		}
		values[idx] = &tensor{kind: op.Type, dims: slices.Clone(dims), data: data}
	}
	return values, nil
}

// writeOutputs stores every output that fits. sufficient is false when any
// output buffer is too small.
func writeOutputs(model device.Model, req device.Request, values map[uint32]*tensor) ([]device.OutputShape, bool, error) {
	shapes := make([]device.OutputShape, len(model.OutputIndexes))
	sufficient := true
	for i, idx := range model.OutputIndexes {
		t := values[idx]
		if t == nil {
			return nil, false, fmt.Errorf("output %d was never computed", i)
		}
		if i >= len(req.Outputs) {
			return nil, false, fmt.Errorf("request has %d outputs, model needs %d", len(req.Outputs), len(model.OutputIndexes))
		}
		arg := req.Outputs[i]
		shapes[i] = device.OutputShape{Dimensions: slices.Clone(t.dims), IsSufficient: true}
		if arg.HasNoValue {
			continue
		}

		required := uint32(len(t.data) * t.kind.Size())
		if arg.Location.Length < required {
			shapes[i].IsSufficient = false
			sufficient = false
			continue
		}
		if int(arg.Location.PoolIndex) >= len(req.Pools) {
			return nil, false, fmt.Errorf("output %d: pool %d does not exist", i, arg.Location.PoolIndex)
		}
		dst, err := req.Pools[arg.Location.PoolIndex].Slice(arg.Location.Offset, required)
		if err != nil {
			return nil, false, fmt.Errorf("output %d: %w", i, err)
		}
		if err := encode(t.kind, t.data, dst); err != nil {
			return nil, false, fmt.Errorf("output %d: %w", i, err)
		}
	}
	return shapes, sufficient, nil
}

func compute(model device.Model, op device.Operation, values map[uint32]*tensor) error {
	in := make([]*tensor, len(op.Inputs))
	for i, idx := range op.Inputs {
		if values[idx] == nil {
			return fmt.Errorf("operand %d has no value", idx)
		}
		in[i] = values[idx]
	}
	outKind := model.Operands[op.Outputs[0]].Type

	var out *tensor
	var err error
	switch op.Type {
	case device.OpAdd:
		out, err = elementwise(in[0], in[1], outKind, func(a, b float64) float64 { return a + b })
	case device.OpMul:
		out, err = elementwise(in[0], in[1], outKind, func(a, b float64) float64 { return a * b })
	case device.OpRandomMultinomial:
		out, err = multinomial(in[0], in[1])
	default:
		err = fmt.Errorf("unsupported operation")
	}
	if err != nil {
		return err
	}
	values[op.Outputs[0]] = out
	return nil
}

// elementwise applies fn with scalar broadcasting, rounding each result to
// the output kind.
func elementwise(a, b *tensor, kind operand.Kind, fn func(a, b float64) float64) (*tensor, error) {
	dims := a.dims
	switch {
	case len(a.data) == len(b.data):
	case len(b.data) == 1:
	case len(a.data) == 1:
		dims = b.dims
	default:
		return nil, fmt.Errorf("shapes %v and %v do not broadcast", a.dims, b.dims)
	}

	n := max(len(a.data), len(b.data))
	out := &tensor{kind: kind, dims: slices.Clone(dims), data: make([]float64, n)}
	at := func(t *tensor, i int) float64 {
		if len(t.data) == 1 {
			return t.data[0]
		}
		return t.data[i]
	}
	for i := range n {
		out.data[i] = round(kind, fn(at(a, i), at(b, i)))
	}
	return out, nil
}

func round(kind operand.Kind, v float64) float64 {
	switch kind {
	case operand.Int32:
		return float64(int32(int64(v)))
	case operand.Float32, operand.Float16:
		return float64(float32(v))
	}
	return v
}

// multinomial draws samples per batch by stratified inverse-CDF sampling.
// Sample s of n takes the class whose cumulative probability first exceeds
// (s+0.5)/n, so each class receives its share of samples to within one.
func multinomial(logits, count *tensor) (*tensor, error) {
	if len(count.data) != 1 || count.data[0] < 1 {
		return nil, fmt.Errorf("sample count must be a positive scalar")
	}
	samples := int(count.data[0])

	batches, classes := 1, len(logits.data)
	if len(logits.dims) == 2 {
		batches, classes = int(logits.dims[0]), int(logits.dims[1])
	}
	if batches*classes != len(logits.data) || classes == 0 {
		return nil, fmt.Errorf("logits %v are not [batches, classes]", logits.dims)
	}

	out := &tensor{
		kind: operand.Int32,
		dims: []uint32{uint32(batches), uint32(samples)},
		data: make([]float64, batches*samples),
	}
	cdf := make([]float64, classes)
	for b := range batches {
		row := logits.data[b*classes : (b+1)*classes]
		lse := floats.LogSumExp(row)
		for c, l := range row {
			cdf[c] = math.Exp(l - lse)
		}
		floats.CumSum(cdf, cdf)

		class := 0
		for s := range samples {
			u := (float64(s) + 0.5) / float64(samples)
			for class < classes-1 && cdf[class] <= u {
				class++
			}
			out.data[b*samples+s] = float64(class)
		}
	}
	return out, nil
}
