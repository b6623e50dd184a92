package harness

import (
	"context"
	"fmt"
	"testing"

	"github.com/roach88/nnvts/internal/device"
	"github.com/roach88/nnvts/internal/operand"
	"github.com/roach88/nnvts/internal/refdevice"
)

// fakeTB records what the harness reports. Skipf does not stop the
// goroutine, so the harness continues to its return.
type fakeTB struct {
	testing.TB
	name    string
	errors  []string
	logs    []string
	skipped string
}

func newFakeTB(name string) *fakeTB {
	return &fakeTB{name: name}
}

func (f *fakeTB) Helper()      {}
func (f *fakeTB) Name() string { return f.name }

func (f *fakeTB) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Logf(format string, args ...any) {
	f.logs = append(f.logs, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Skipf(format string, args ...any) {
	f.skipped = fmt.Sprintf(format, args...)
}

type memoryRecorder struct {
	reports []*Report
	err     error
}

func (r *memoryRecorder) RecordReport(_ context.Context, report *Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

func noneIgnored(int) bool { return false }

func addModel(outDims ...uint32) func() device.Model {
	return func() device.Model {
		return refdevice.BinaryModel(device.OpAdd, operand.Float32, []uint32{2}, outDims)
	}
}

// addExample is [a0 a1] + [b0 b1] with the golden sum.
func addExample(a, b [2]float32) Example {
	in := operand.New()
	in.Float32[0] = a[:]
	in.Float32[1] = b[:]
	in.Dimensions[0] = []uint32{2}
	in.Dimensions[1] = []uint32{2}

	golden := operand.New()
	golden.Float32[0] = []float32{a[0] + b[0], a[1] + b[1]}
	golden.Dimensions[0] = []uint32{2}
	return Example{Inputs: in, Golden: golden}
}

func addExamples() []Example {
	return []Example{
		addExample([2]float32{1, 2}, [2]float32{10, 20}),
		addExample([2]float32{-1.5, 0.25}, [2]float32{0.5, 0.75}),
	}
}
