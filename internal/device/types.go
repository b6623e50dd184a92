package device

import (
	"fmt"
	"math"

	"github.com/roach88/nnvts/internal/memory"
)

// ErrorStatus is the verdict a device returns for a call.
type ErrorStatus int

const (
	StatusNone ErrorStatus = iota
	StatusDeviceUnavailable
	StatusGeneralFailure
	StatusOutputInsufficientSize
	StatusInvalidArgument
)

var statusNames = map[ErrorStatus]string{
	StatusNone:                   "NONE",
	StatusDeviceUnavailable:      "DEVICE_UNAVAILABLE",
	StatusGeneralFailure:         "GENERAL_FAILURE",
	StatusOutputInsufficientSize: "OUTPUT_INSUFFICIENT_SIZE",
	StatusInvalidArgument:        "INVALID_ARGUMENT",
}

func (s ErrorStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ErrorStatus(%d)", int(s))
}

// MeasureTiming asks the device to report execution timing.
type MeasureTiming int

const (
	MeasureNo MeasureTiming = iota
	MeasureYes
)

func (m MeasureTiming) String() string {
	if m == MeasureYes {
		return "timing"
	}
	return "no_timing"
}

// TimingUnknown marks a timing field the device did not measure.
const TimingUnknown uint64 = math.MaxUint64

// Timing reports execution durations in microseconds.
// OnDevice is a subset of InDriver when both are known.
type Timing struct {
	OnDevice uint64 `json:"on_device"`
	InDriver uint64 `json:"in_driver"`
}

// UnknownTiming returns a Timing with both fields unknown.
func UnknownTiming() Timing {
	return Timing{OnDevice: TimingUnknown, InDriver: TimingUnknown}
}

// Known reports whether both fields carry a measurement.
func (t Timing) Known() bool {
	return t.OnDevice != TimingUnknown && t.InDriver != TimingUnknown
}

// OutputShape is the shape a device reports for one output operand.
type OutputShape struct {
	Dimensions   []uint32 `json:"dimensions"`
	IsSufficient bool     `json:"is_sufficient"`
}

// ExecutionPreference hints how a prepared model will be used.
type ExecutionPreference int

const (
	PreferLowPower ExecutionPreference = iota
	PreferFastSingleAnswer
	PreferSustainedSpeed
)

func (p ExecutionPreference) String() string {
	switch p {
	case PreferLowPower:
		return "LOW_POWER"
	case PreferFastSingleAnswer:
		return "FAST_SINGLE_ANSWER"
	case PreferSustainedSpeed:
		return "SUSTAINED_SPEED"
	}
	return fmt.Sprintf("ExecutionPreference(%d)", int(p))
}

// Pool indexes used by the harness when building a Request.
const (
	InputPool  uint32 = 0
	OutputPool uint32 = 1
)

// DataLocation locates one operand inside a pool.
type DataLocation struct {
	PoolIndex uint32
	Offset    uint32
	Length    uint32
}

// RequestArgument describes one model input or output of a Request.
type RequestArgument struct {
	// HasNoValue marks an omitted operand; Location is ignored.
	HasNoValue bool
	Location   DataLocation
	// Dimensions overrides the model's operand dimensions when non-empty.
	Dimensions []uint32
}

// Request binds model inputs and outputs to memory pools for one execution.
type Request struct {
	Inputs  []RequestArgument
	Outputs []RequestArgument
	Pools   []*memory.Pool
}

// Version names a device interface version.
type Version string

const (
	V1_0 Version = "1.0"
	V1_1 Version = "1.1"
	V1_2 Version = "1.2"
)

// StatusError reports a call that completed with a status other than NONE.
type StatusError struct {
	Op     string
	Status ErrorStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.Op, e.Status)
}
