package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/validate"
)

func loc(pool, offset, length uint32) device.RequestArgument {
	return device.RequestArgument{Location: device.DataLocation{PoolIndex: pool, Offset: offset, Length: length}}
}

func TestPlanInputs_PrefixSum(t *testing.T) {
	c := operand.New()
	c.Float32[0] = []float32{1, 2, 3, 4}
	c.Float32[1] = []float32{5, 6, 7, 8}

	p := PlanInputs(c)

	assert.Equal(t, uint32(32), p.Size)
	assert.Equal(t, []device.RequestArgument{
		loc(device.InputPool, 0, 16),
		loc(device.InputPool, 16, 16),
	}, p.Args)
}

func TestPlanInputs_MixedKindsFollowIndexOrder(t *testing.T) {
	c := operand.New()
	c.Float32[3] = []float32{1}
	c.Int32[1] = []int32{7, 8}
	c.Quant8Asymm[4] = []uint8{9, 9, 9}

	p := PlanInputs(c)

	require.Len(t, p.Args, 5)
	assert.True(t, p.Args[0].HasNoValue, "gap at index 0")
	assert.Equal(t, loc(device.InputPool, 0, 8), p.Args[1])
	assert.True(t, p.Args[2].HasNoValue, "gap at index 2")
	assert.Equal(t, loc(device.InputPool, 8, 4), p.Args[3])
	assert.Equal(t, loc(device.InputPool, 12, 3), p.Args[4])
	assert.Equal(t, uint32(15), p.Size)
}

func TestPlanInputs_ZeroLengthHasNoValue(t *testing.T) {
	c := operand.New()
	c.Float32[0] = []float32{}
	c.Float32[1] = []float32{1, 2}

	p := PlanInputs(c)

	require.Len(t, p.Args, 2)
	assert.True(t, p.Args[0].HasNoValue)
	assert.Equal(t, loc(device.InputPool, 0, 8), p.Args[1])
	assert.Equal(t, uint32(8), p.Size)
}

func TestPlanInputs_Empty(t *testing.T) {
	p := PlanInputs(operand.New())
	assert.Empty(t, p.Args)
	assert.Zero(t, p.Size)
}

func TestPlan_SizeIsSumOfLengths(t *testing.T) {
	c := operand.New()
	c.Float32[0] = []float32{1, 2, 3}
	c.Float16[2] = []float16.Float16{operand.Half(1), operand.Half(2)}
	c.Bool8[5] = []operand.Bool{1}

	p := PlanInputs(c)

	var sum uint32
	for _, a := range p.Args {
		if !a.HasNoValue {
			sum += a.Location.Length
		}
	}
	assert.Equal(t, sum, p.Size)

	again := PlanInputs(c)
	assert.Equal(t, p, again, "planning is idempotent")
}

func TestPlanOutputs(t *testing.T) {
	golden := operand.New()
	golden.Float32[0] = []float32{1, 2, 3, 4}
	golden.Int32[1] = []int32{1, 2}

	t.Run("fully specified", func(t *testing.T) {
		p, ok := PlanOutputs(golden, validate.FullySpecified)
		require.True(t, ok)
		assert.Equal(t, []device.RequestArgument{
			loc(device.OutputPool, 0, 16),
			loc(device.OutputPool, 16, 8),
		}, p.Args)
		assert.Equal(t, uint32(24), p.Size)
	})

	t.Run("unspecified uses the same layout", func(t *testing.T) {
		p, ok := PlanOutputs(golden, validate.Unspecified)
		require.True(t, ok)
		assert.Equal(t, uint32(24), p.Size)
	})

	t.Run("insufficient shrinks operand 0 only", func(t *testing.T) {
		p, ok := PlanOutputs(golden, validate.Insufficient)
		require.True(t, ok)
		assert.Equal(t, []device.RequestArgument{
			loc(device.OutputPool, 0, 15),
			loc(device.OutputPool, 15, 8),
		}, p.Args)
		assert.Equal(t, uint32(23), p.Size)
	})
}

func TestPlanOutputs_InsufficientSkipsOneByteOutput(t *testing.T) {
	golden := operand.New()
	golden.Quant8Asymm[0] = []uint8{200}

	_, ok := PlanOutputs(golden, validate.Insufficient)
	assert.False(t, ok)

	p, ok := PlanOutputs(golden, validate.FullySpecified)
	require.True(t, ok)
	assert.Equal(t, uint32(1), p.Size)
}

// Only operand 0 is ever shrunk. A test case whose operand 0 is missing
// cannot exercise the insufficient path at all.
func TestPlanOutputs_InsufficientWithoutOperandZero(t *testing.T) {
	golden := operand.New()
	golden.Float32[1] = []float32{1, 2}

	_, ok := PlanOutputs(golden, validate.Insufficient)
	assert.False(t, ok)
}

func TestPlanOutputs_ZeroLengthOutputCopiesBack(t *testing.T) {
	golden := operand.New()
	golden.Float32[0] = []float32{}
	golden.Float32[1] = []float32{1, 2}
	golden.Dimensions[0] = []uint32{0}
	golden.Dimensions[1] = []uint32{2}

	p, ok := PlanOutputs(golden, validate.FullySpecified)
	require.True(t, ok)
	assert.Equal(t, []device.RequestArgument{
		{HasNoValue: true, Location: device.DataLocation{PoolIndex: device.OutputPool}},
		loc(device.OutputPool, 0, 8),
	}, p.Args)
	assert.Equal(t, uint32(8), p.Size)

	result := golden.ResizeLike()
	require.NoError(t, validate.CopyBack(result, p.Args, make([]byte, p.Size)))
	assert.Empty(t, result.Float32[0])
	assert.Equal(t, []float32{0, 0}, result.Float32[1])
}

func TestPlanOutputs_GapsCarryOutputPool(t *testing.T) {
	golden := operand.New()
	golden.Int32[2] = []int32{1}

	p, ok := PlanOutputs(golden, validate.FullySpecified)
	require.True(t, ok)
	require.Len(t, p.Args, 3)
	for _, a := range p.Args[:2] {
		assert.True(t, a.HasNoValue)
		assert.Equal(t, device.OutputPool, a.Location.PoolIndex)
	}
}
