package validate

import "fmt"

// OutputMode says how output operands are specified to the device.
type OutputMode int

const (
	// FullySpecified outputs have every dimension known up front.
	FullySpecified OutputMode = iota
	// Unspecified outputs leave dimensions to the device.
	Unspecified
	// Insufficient gives output 0 a buffer one byte too small.
	Insufficient
)

func (m OutputMode) String() string {
	switch m {
	case FullySpecified:
		return "fully_specified"
	case Unspecified:
		return "unspecified"
	case Insufficient:
		return "insufficient"
	}
	return fmt.Sprintf("OutputMode(%d)", int(m))
}
