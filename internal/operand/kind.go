package operand

import (
	"fmt"

	"github.com/x448/float16"
)

// Kind identifies the element type of an operand buffer.
//
// The set is closed. Every function that walks all kinds carries a
// compile-time check against NumKinds, so adding a kind breaks the build
// at each site that has not been taught about it yet.
type Kind int

const (
	Float32 Kind = iota
	Int32
	Quant8Asymm
	Quant16Symm
	Float16
	Bool8
	Quant8SymmPerChannel
	Quant16Asymm
	Quant8Symm

	numKinds
)

// NumKinds is the number of element kinds a Collection carries.
const NumKinds = int(numKinds)

// Bool is the element type of the Bool8 kind. Zero is false, anything
// else true.
type Bool uint8

// Element is the set of Go types backing the nine kinds.
//
// float16.Float16 is covered by ~uint16 and Bool by ~uint8.
type Element interface {
	~float32 | ~int32 | ~uint8 | ~int16 | ~uint16 | ~int8
}

var kindNames = [NumKinds]string{
	Float32:              "float32",
	Int32:                "int32",
	Quant8Asymm:          "quant8_asymm",
	Quant16Symm:          "quant16_symm",
	Float16:              "float16",
	Bool8:                "bool8",
	Quant8SymmPerChannel: "quant8_symm_per_channel",
	Quant16Asymm:         "quant16_asymm",
	Quant8Symm:           "quant8_symm",
}

var kindSizes = [NumKinds]int{
	Float32:              4,
	Int32:                4,
	Quant8Asymm:          1,
	Quant16Symm:          2,
	Float16:              2,
	Bool8:                1,
	Quant8SymmPerChannel: 1,
	Quant16Asymm:         2,
	Quant8Symm:           1,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, NumKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Valid reports whether k is one of the nine known kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// String returns the snake_case name used in test-case files.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Size returns the byte width of one element.
func (k Kind) Size() int {
	if !k.Valid() {
		return 0
	}
	return kindSizes[k]
}

// IsFloat reports whether values of this kind are compared with tolerance.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float16
}

// ParseKind resolves a kind from its String form.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown operand kind %q", name)
}

// Half converts a float32 to the Float16 element type.
func Half(f float32) float16.Float16 {
	return float16.Fromfloat32(f)
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("marshal invalid operand kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
