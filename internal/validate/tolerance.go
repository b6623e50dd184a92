package validate

import (
	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
)

// Float32Epsilon is FLT_EPSILON, the gap between 1 and the next float32.
const Float32Epsilon = 1.1920928955078125e-7

// Float16Epsilon is the gap between 1 and the next float16.
const Float16Epsilon = 0.0009765625

// Tolerance bounds float comparison: |golden-actual| <= Atol + Rtol*|golden|.
type Tolerance struct {
	Atol float64 `json:"atol" yaml:"atol"`
	Rtol float64 `json:"rtol" yaml:"rtol"`
}

// Bound returns the allowed deviation from golden.
func (t Tolerance) Bound(golden float64) float64 {
	if golden < 0 {
		golden = -golden
	}
	return t.Atol + t.Rtol*golden
}

// DefaultTolerance returns the base tolerance for an interface version.
func DefaultTolerance(v device.Version) Tolerance {
	if v == device.V1_0 {
		return Tolerance{Atol: 1e-5, Rtol: 5 * Float32Epsilon}
	}
	return Tolerance{Atol: 1e-5, Rtol: 1e-5}
}

// RelaxedTolerance is five float16 ULPs, absolute and relative.
func RelaxedTolerance() Tolerance {
	return Tolerance{Atol: 5 * Float16Epsilon, Rtol: 5 * Float16Epsilon}
}

// ToleranceFor picks the tolerance for one example. The relaxed tolerance
// applies when the model computes float32 in half precision or when the
// example carries float16 inputs. The choice never leaks into later examples.
func ToleranceFor(base, relaxed Tolerance, relaxedModel bool, inputs *operand.Collection) Tolerance {
	if relaxedModel || (inputs != nil && inputs.HasKind(operand.Float16)) {
		return relaxed
	}
	return base
}
