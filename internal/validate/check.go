package validate

import (
	"fmt"

	"github.com/roach88/nnvts/internal/device"
)

// Action tells the caller what to do with an example after CheckExecution.
type Action int

const (
	// Continue to copy-back and comparison.
	Continue Action = iota
	// Skip the example: the device declined a model it does not support.
	Skip
	// Stop the example successfully: nothing is left to compare.
	Stop
	// Abort the example: a fatal failure was recorded.
	Abort
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Stop:
		return "stop"
	case Abort:
		return "abort"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Execution is what a device reported for one execution.
type Execution struct {
	Status device.ErrorStatus
	Shapes []device.OutputShape
	Timing device.Timing
}

// Verdict is the result of CheckExecution. Failures may be present with
// any Action; timing failures do not stop evaluation.
type Verdict struct {
	Action   Action
	Reason   string
	Failures []string
}

// Failed reports whether any failure was recorded.
func (v Verdict) Failed() bool {
	return len(v.Failures) > 0
}

func (v *Verdict) fail(format string, args ...any) {
	v.Failures = append(v.Failures, fmt.Sprintf(format, args...))
}

func (v *Verdict) abort(format string, args ...any) Verdict {
	v.fail(format, args...)
	v.Action = Abort
	return *v
}

// CheckExecution checks status, timing and reported shapes against the
// output mode. numOutputs is the number of golden output operands.
func CheckExecution(mode OutputMode, measure device.MeasureTiming, exec Execution, numOutputs int) Verdict {
	var v Verdict

	if mode != FullySpecified && exec.Status == device.StatusGeneralFailure {
		v.Action = Skip
		v.Reason = "early termination: device cannot execute a model it does not support"
		return v
	}

	if measure == device.MeasureNo {
		if exec.Timing.OnDevice != device.TimingUnknown {
			v.fail("timing not requested but timeOnDevice = %d", exec.Timing.OnDevice)
		}
		if exec.Timing.InDriver != device.TimingUnknown {
			v.fail("timing not requested but timeInDriver = %d", exec.Timing.InDriver)
		}
	} else if exec.Timing.Known() && exec.Timing.OnDevice > exec.Timing.InDriver {
		v.fail("timeOnDevice %d exceeds timeInDriver %d", exec.Timing.OnDevice, exec.Timing.InDriver)
	}

	switch mode {
	case FullySpecified:
		if exec.Status != device.StatusNone {
			return v.abort("execution status: expected %s, got %s", device.StatusNone, exec.Status)
		}
		if n := len(exec.Shapes); n != 0 && n != numOutputs {
			return v.abort("output shapes: expected 0 or %d, got %d", numOutputs, n)
		}
	case Unspecified:
		if exec.Status != device.StatusNone {
			return v.abort("execution status: expected %s, got %s", device.StatusNone, exec.Status)
		}
		if n := len(exec.Shapes); n != numOutputs {
			return v.abort("output shapes: expected %d, got %d", numOutputs, n)
		}
	case Insufficient:
		if exec.Status != device.StatusOutputInsufficientSize {
			return v.abort("execution status: expected %s, got %s", device.StatusOutputInsufficientSize, exec.Status)
		}
		if n := len(exec.Shapes); n != numOutputs || n == 0 {
			return v.abort("output shapes: expected %d, got %d", numOutputs, n)
		}
		if exec.Shapes[0].IsSufficient {
			return v.abort("output 0 reported sufficient for an undersized buffer")
		}
		v.Action = Stop
		return v
	default:
		return v.abort("unknown output mode %s", mode)
	}

	v.Action = Continue
	return v
}
