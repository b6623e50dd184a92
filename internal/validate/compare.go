package validate

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/x448/float16"

	"github.com/roach88/nnvts/internal/operand"
)

// MaxReported caps the mismatches a Comparison keeps in detail.
const MaxReported = 10

// Mismatch is one value, or one whole operand, that failed comparison.
// Element is -1 when the whole operand is at fault.
type Mismatch struct {
	Operand  int          `json:"operand"`
	Kind     operand.Kind `json:"kind"`
	Element  int          `json:"element"`
	Expected float64      `json:"expected"`
	Actual   float64      `json:"actual"`
	Reason   string       `json:"reason,omitempty"`
}

func (m Mismatch) Error() string {
	if m.Element < 0 {
		return fmt.Sprintf("%s operand %d: %s", m.Kind, m.Operand, m.Reason)
	}
	if m.Reason != "" {
		return fmt.Sprintf("%s operand %d[%d]: %s", m.Kind, m.Operand, m.Element, m.Reason)
	}
	return fmt.Sprintf("%s operand %d[%d]: expected %v, got %v", m.Kind, m.Operand, m.Element, m.Expected, m.Actual)
}

// Comparison collects mismatches. Total counts every mismatch, including
// the ones beyond MaxReported that were not kept.
type Comparison struct {
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	Total      int        `json:"total"`
}

// OK reports whether nothing mismatched.
func (c Comparison) OK() bool {
	return c.Total == 0
}

// Merge folds other into c, keeping the cap.
func (c *Comparison) Merge(other Comparison) {
	for _, m := range other.Mismatches {
		c.add(m)
	}
	c.Total += other.Total - len(other.Mismatches)
}

func (c *Comparison) add(m Mismatch) {
	c.Total++
	if len(c.Mismatches) < MaxReported {
		c.Mismatches = append(c.Mismatches, m)
	}
}

// Compare checks actual against golden. Float kinds pass within tol; every
// other kind must match exactly. Both collections should already have
// ignored operands filtered out.
func Compare(golden, actual *operand.Collection, tol Tolerance) Comparison {
	_ = [1]struct{}{}[operand.NumKinds-9]

	var c Comparison
	near := within(tol)
	compareKind(&c, operand.Float32, golden.Float32, actual.Float32, fromFloat32, near)
	compareKind(&c, operand.Int32, golden.Int32, actual.Int32, fromInt[int32], exact)
	compareKind(&c, operand.Quant8Asymm, golden.Quant8Asymm, actual.Quant8Asymm, fromInt[uint8], exact)
	compareKind(&c, operand.Quant16Symm, golden.Quant16Symm, actual.Quant16Symm, fromInt[int16], exact)
	compareKind(&c, operand.Float16, golden.Float16, actual.Float16, fromFloat16, near)
	compareKind(&c, operand.Bool8, golden.Bool8, actual.Bool8, fromBool8, exact)
	compareKind(&c, operand.Quant8SymmPerChannel, golden.Quant8SymmPerChannel, actual.Quant8SymmPerChannel, fromInt[int8], exact)
	compareKind(&c, operand.Quant16Asymm, golden.Quant16Asymm, actual.Quant16Asymm, fromInt[uint16], exact)
	compareKind(&c, operand.Quant8Symm, golden.Quant8Symm, actual.Quant8Symm, fromInt[int8], exact)
	return c
}

func compareKind[T operand.Element](c *Comparison, kind operand.Kind, golden, actual map[int][]T,
	conv func(T) float64, match func(g, a float64) bool) {
	for _, idx := range slices.Sorted(maps.Keys(golden)) {
		want := golden[idx]
		got, ok := actual[idx]
		if !ok {
			c.add(Mismatch{Operand: idx, Kind: kind, Element: -1, Reason: "missing from result"})
			continue
		}
		if len(want) != len(got) {
			c.add(Mismatch{Operand: idx, Kind: kind, Element: -1,
				Reason: fmt.Sprintf("expected %d elements, got %d", len(want), len(got))})
			continue
		}
		for i := range want {
			g, a := conv(want[i]), conv(got[i])
			if !match(g, a) {
				c.add(Mismatch{Operand: idx, Kind: kind, Element: i, Expected: g, Actual: a})
			}
		}
	}
	for _, idx := range slices.Sorted(maps.Keys(actual)) {
		if _, ok := golden[idx]; !ok {
			c.add(Mismatch{Operand: idx, Kind: kind, Element: -1, Reason: "not in golden output"})
		}
	}
}

func within(tol Tolerance) func(g, a float64) bool {
	return func(g, a float64) bool {
		switch {
		case math.IsNaN(g) || math.IsNaN(a):
			return math.IsNaN(g) && math.IsNaN(a)
		case math.IsInf(g, 0) || math.IsInf(a, 0):
			return g == a
		}
		return math.Abs(g-a) <= tol.Bound(g)
	}
}

func exact(g, a float64) bool {
	return g == a
}

func fromFloat32(v float32) float64 {
	return float64(v)
}

func fromFloat16(v float16.Float16) float64 {
	return float64(v.Float32())
}

func fromBool8(v operand.Bool) float64 {
	if v != 0 {
		return 1
	}
	return 0
}

func fromInt[T int32 | uint8 | int16 | int8 | uint16](v T) float64 {
	return float64(v)
}
