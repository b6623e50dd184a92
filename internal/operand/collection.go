package operand

import (
	"fmt"
	"maps"
	"slices"
	"unsafe"

	"github.com/x448/float16"
)

// Collection maps operand indexes to typed buffers, one map per kind.
//
// An operand index is unique within its kind's map, not across the whole
// collection. Dimensions is keyed by operand index alone.
type Collection struct {
	Float32              map[int][]float32
	Int32                map[int][]int32
	Quant8Asymm          map[int][]uint8
	Quant16Symm          map[int][]int16
	Float16              map[int][]float16.Float16
	Bool8                map[int][]Bool
	Quant8SymmPerChannel map[int][]int8
	Quant16Asymm         map[int][]uint16
	Quant8Symm           map[int][]int8

	Dimensions map[int][]uint32
}

// New returns an empty collection with every map allocated.
func New() *Collection {
	return &Collection{
		Float32:              map[int][]float32{},
		Int32:                map[int][]int32{},
		Quant8Asymm:          map[int][]uint8{},
		Quant16Symm:          map[int][]int16{},
		Float16:              map[int][]float16.Float16{},
		Bool8:                map[int][]Bool{},
		Quant8SymmPerChannel: map[int][]int8{},
		Quant16Asymm:         map[int][]uint16{},
		Quant8Symm:           map[int][]int8{},
		Dimensions:           map[int][]uint32{},
	}
}

// Visitor receives one operand during ForAll. raw aliases the typed buffer.
type Visitor func(index int, kind Kind, raw []byte)

// ForAll visits every present operand, kind by kind in declaration order and
// by ascending index within a kind.
func (c *Collection) ForAll(fn Visitor) {
	_ = [1]struct{}{}[NumKinds-9] // update the calls below when kinds change

	forEach(c.Float32, Float32, fn)
	forEach(c.Int32, Int32, fn)
	forEach(c.Quant8Asymm, Quant8Asymm, fn)
	forEach(c.Quant16Symm, Quant16Symm, fn)
	forEach(c.Float16, Float16, fn)
	forEach(c.Bool8, Bool8, fn)
	forEach(c.Quant8SymmPerChannel, Quant8SymmPerChannel, fn)
	forEach(c.Quant16Asymm, Quant16Asymm, fn)
	forEach(c.Quant8Symm, Quant8Symm, fn)
}

// ResizeLike returns a new collection whose buffers have the same kinds,
// indexes and element counts as c, zero filled. Dimensions are copied.
// It is used to allocate a results collection shaped like the golden one.
func (c *Collection) ResizeLike() *Collection {
	_ = [1]struct{}{}[NumKinds-9]

	out := New()
	out.Float32 = zeroedLike(c.Float32)
	out.Int32 = zeroedLike(c.Int32)
	out.Quant8Asymm = zeroedLike(c.Quant8Asymm)
	out.Quant16Symm = zeroedLike(c.Quant16Symm)
	out.Float16 = zeroedLike(c.Float16)
	out.Bool8 = zeroedLike(c.Bool8)
	out.Quant8SymmPerChannel = zeroedLike(c.Quant8SymmPerChannel)
	out.Quant16Asymm = zeroedLike(c.Quant16Asymm)
	out.Quant8Symm = zeroedLike(c.Quant8Symm)
	for idx, dims := range c.Dimensions {
		out.Dimensions[idx] = slices.Clone(dims)
	}
	return out
}

// Filter returns a collection without the operands for which isIgnored
// returns true. Buffers are shared with c. A nil predicate keeps everything.
func (c *Collection) Filter(isIgnored func(index int) bool) *Collection {
	_ = [1]struct{}{}[NumKinds-9]

	if isIgnored == nil {
		isIgnored = func(int) bool { return false }
	}
	out := New()
	out.Float32 = kept(c.Float32, isIgnored)
	out.Int32 = kept(c.Int32, isIgnored)
	out.Quant8Asymm = kept(c.Quant8Asymm, isIgnored)
	out.Quant16Symm = kept(c.Quant16Symm, isIgnored)
	out.Float16 = kept(c.Float16, isIgnored)
	out.Bool8 = kept(c.Bool8, isIgnored)
	out.Quant8SymmPerChannel = kept(c.Quant8SymmPerChannel, isIgnored)
	out.Quant16Asymm = kept(c.Quant16Asymm, isIgnored)
	out.Quant8Symm = kept(c.Quant8Symm, isIgnored)
	out.Dimensions = kept(c.Dimensions, isIgnored)
	return out
}

// Bytes returns the raw view of one operand buffer.
func (c *Collection) Bytes(kind Kind, index int) ([]byte, bool) {
	_ = [1]struct{}{}[NumKinds-9]

	switch kind {
	case Float32:
		return lookup(c.Float32, index)
	case Int32:
		return lookup(c.Int32, index)
	case Quant8Asymm:
		return lookup(c.Quant8Asymm, index)
	case Quant16Symm:
		return lookup(c.Quant16Symm, index)
	case Float16:
		return lookup(c.Float16, index)
	case Bool8:
		return lookup(c.Bool8, index)
	case Quant8SymmPerChannel:
		return lookup(c.Quant8SymmPerChannel, index)
	case Quant16Asymm:
		return lookup(c.Quant16Asymm, index)
	case Quant8Symm:
		return lookup(c.Quant8Symm, index)
	}
	return nil, false
}

// SizeOf returns the byte size of one operand buffer.
func (c *Collection) SizeOf(kind Kind, index int) (int, bool) {
	raw, ok := c.Bytes(kind, index)
	return len(raw), ok
}

// Resize sets the element count of one operand buffer, keeping the
// existing prefix and zero filling the rest. The operand is created if it
// does not exist yet.
func (c *Collection) Resize(kind Kind, index, n int) error {
	_ = [1]struct{}{}[NumKinds-9]

	if n < 0 {
		return fmt.Errorf("resize %s operand %d: negative length %d", kind, index, n)
	}
	switch kind {
	case Float32:
		c.Float32 = resized(c.Float32, index, n)
	case Int32:
		c.Int32 = resized(c.Int32, index, n)
	case Quant8Asymm:
		c.Quant8Asymm = resized(c.Quant8Asymm, index, n)
	case Quant16Symm:
		c.Quant16Symm = resized(c.Quant16Symm, index, n)
	case Float16:
		c.Float16 = resized(c.Float16, index, n)
	case Bool8:
		c.Bool8 = resized(c.Bool8, index, n)
	case Quant8SymmPerChannel:
		c.Quant8SymmPerChannel = resized(c.Quant8SymmPerChannel, index, n)
	case Quant16Asymm:
		c.Quant16Asymm = resized(c.Quant16Asymm, index, n)
	case Quant8Symm:
		c.Quant8Symm = resized(c.Quant8Symm, index, n)
	default:
		return fmt.Errorf("resize operand %d: unknown kind %d", index, int(kind))
	}
	return nil
}

// CopyFrom overwrites one operand buffer with src. The operand must exist
// and its byte size must equal len(src) exactly.
func (c *Collection) CopyFrom(kind Kind, index int, src []byte) error {
	dst, ok := c.Bytes(kind, index)
	if !ok {
		return fmt.Errorf("copy into %s operand %d: operand not present", kind, index)
	}
	if len(dst) != len(src) {
		return fmt.Errorf("copy into %s operand %d: buffer holds %d bytes, got %d",
			kind, index, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// Indexes returns the distinct operand indexes present in any kind, sorted.
func (c *Collection) Indexes() []int {
	seen := map[int]struct{}{}
	c.ForAll(func(index int, _ Kind, _ []byte) {
		seen[index] = struct{}{}
	})
	return slices.Sorted(maps.Keys(seen))
}

// Len returns the number of distinct operand indexes.
func (c *Collection) Len() int {
	return len(c.Indexes())
}

// Empty reports whether no kind holds any operand.
func (c *Collection) Empty() bool {
	return c.Len() == 0
}

// HasKind reports whether at least one operand of kind is present.
func (c *Collection) HasKind(kind Kind) bool {
	found := false
	c.ForAll(func(_ int, k Kind, _ []byte) {
		if k == kind {
			found = true
		}
	})
	return found
}

// ElementCount returns the number of elements implied by the operand's
// dimensions. ok is false when no dimensions are recorded. A rank-0
// operand holds one element.
func (c *Collection) ElementCount(index int) (n int, ok bool) {
	dims, ok := c.Dimensions[index]
	if !ok {
		return 0, false
	}
	n = 1
	for _, d := range dims {
		n *= int(d)
	}
	return n, true
}

func forEach[T Element](m map[int][]T, kind Kind, fn Visitor) {
	for _, idx := range slices.Sorted(maps.Keys(m)) {
		fn(idx, kind, asBytes(m[idx]))
	}
}

func lookup[T Element](m map[int][]T, index int) ([]byte, bool) {
	s, ok := m[index]
	if !ok {
		return nil, false
	}
	return asBytes(s), true
}

func zeroedLike[T Element](m map[int][]T) map[int][]T {
	out := make(map[int][]T, len(m))
	for idx, s := range m {
		out[idx] = make([]T, len(s))
	}
	return out
}

func kept[V any](m map[int]V, isIgnored func(int) bool) map[int]V {
	out := make(map[int]V, len(m))
	for idx, v := range m {
		if !isIgnored(idx) {
			out[idx] = v
		}
	}
	return out
}

func resized[T Element](m map[int][]T, index, n int) map[int][]T {
	if m == nil {
		m = map[int][]T{}
	}
	s := m[index]
	switch {
	case n <= len(s):
		s = s[:n]
	case n <= cap(s):
		clear(s[len(s):n])
		s = s[:n]
	default:
		grown := make([]T, n)
		copy(grown, s)
		s = grown
	}
	m[index] = s
	return m
}

// asBytes reinterprets a typed slice as its backing bytes without copying.
func asBytes[T Element](s []T) []byte {
	if len(s) == 0 {
		return []byte{}
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
