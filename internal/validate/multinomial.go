package validate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/nnvts/internal/operand"
)

// ExpectMultinomial checks that sampled class indexes follow the softmax of
// the input logits.
//
// The logits are input operand 0 (float32, or float16 when no float32 is
// present) with dimensions [batches, classes]; a rank-1 or dimensionless
// operand is one batch. The samples are result int32 operand 0, laid out
// [batches, samples]. For every batch and class the observed frequency must
// be within tolerance of the softmax probability.
func ExpectMultinomial(inputs, result *operand.Collection, tolerance float64) Comparison {
	var c Comparison
	wholeOperand := func(kind operand.Kind, reason string, args ...any) Comparison {
		c.add(Mismatch{Operand: 0, Kind: kind, Element: -1, Reason: fmt.Sprintf(reason, args...)})
		return c
	}

	logits, kind, ok := logitsOf(inputs)
	if !ok {
		return wholeOperand(operand.Float32, "no float logits at input operand 0")
	}
	samples, ok := result.Int32[0]
	if !ok {
		return wholeOperand(operand.Int32, "no int32 samples at output operand 0")
	}

	batches, classes := 1, len(logits)
	if dims := inputs.Dimensions[0]; len(dims) == 2 {
		batches, classes = int(dims[0]), int(dims[1])
	}
	if batches == 0 || classes == 0 || batches*classes != len(logits) {
		return wholeOperand(kind, "logits of %d values do not form %d batches of %d classes", len(logits), batches, classes)
	}
	if len(samples) == 0 || len(samples)%batches != 0 {
		return wholeOperand(operand.Int32, "%d samples cannot be split across %d batches", len(samples), batches)
	}
	perBatch := len(samples) / batches

	for b := range batches {
		row := logits[b*classes : (b+1)*classes]
		lse := floats.LogSumExp(row)

		counts := make([]int, classes)
		for i, s := range samples[b*perBatch : (b+1)*perBatch] {
			if s < 0 || int(s) >= classes {
				c.add(Mismatch{Operand: 0, Kind: operand.Int32, Element: b*perBatch + i, Actual: float64(s),
					Reason: fmt.Sprintf("sample %d outside [0, %d)", s, classes)})
				continue
			}
			counts[s]++
		}

		for class, logit := range row {
			want := math.Exp(logit - lse)
			got := float64(counts[class]) / float64(perBatch)
			if math.Abs(want-got) > tolerance {
				c.add(Mismatch{Operand: 0, Kind: operand.Int32, Element: b*classes + class,
					Expected: want, Actual: got,
					Reason: fmt.Sprintf("class %d frequency %.4f, probability %.4f, tolerance %g", class, got, want, tolerance)})
			}
		}
	}
	return c
}

func logitsOf(inputs *operand.Collection) ([]float64, operand.Kind, bool) {
	if v, ok := inputs.Float32[0]; ok {
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, operand.Float32, true
	}
	if v, ok := inputs.Float16[0]; ok {
		out := make([]float64, len(v))
		for i, h := range v {
			out[i] = float64(h.Float32())
		}
		return out, operand.Float16, true
	}
	return nil, 0, false
}
