package matrix

import (
	"fmt"
	"strings"
)

// DType identifies the element type of an array.
//
// NOTE: The numeric values are persisted in file headers; keep them stable.
type DType uint8

const (
	// Invalid is the zero DType.
	Invalid DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var dtypeNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lower-case type name, e.g. "float64".
func (d DType) String() string {
	if int(d) < len(dtypeNames) {
		return dtypeNames[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDType parses a type name as produced by String.
func ParseDType(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dtypeNames {
		if i != int(Invalid) && name == s {
			return DType(i), nil
		}
	}
	return Invalid, fmt.Errorf("unknown dtype %q", s)
}

// Valid reports whether d is a known element type.
func (d DType) Valid() bool {
	return d > Invalid && d <= Float64
}

// Size returns the element width in bytes (0 for Invalid).
func (d DType) Size() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is a floating-point type.
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool { return d >= Int8 && d <= Int64 }

// IsUnsigned reports whether d is an unsigned integer type.
func (d DType) IsUnsigned() bool { return d >= Uint8 && d <= Uint64 }

// Promote returns the element type that results from combining a and b
// under the usual widening rules:
//
//   - equal types are unchanged
//   - two floats, two signed or two unsigned ints widen to the larger one
//   - signed with unsigned widens to a signed type strictly larger than the
//     unsigned one (int64 with uint64 becomes float64)
//   - an integer up to 16 bits with float32 stays float32; any other
//     integer/float mix becomes float64
func Promote(a, b DType) DType {
	if !a.Valid() || !b.Valid() {
		return Invalid
	}
	if a == b {
		return a
	}

	switch {
	case a.IsFloat() && b.IsFloat():
		return larger(a, b)
	case a.IsFloat() || b.IsFloat():
		f, i := a, b
		if b.IsFloat() {
			f, i = b, a
		}
		if f == Float32 && i.Size() <= 2 {
			return Float32
		}
		return Float64
	case a.IsSigned() == b.IsSigned():
		return larger(a, b)
	}

	s, u := a, b
	if b.IsSigned() {
		s, u = b, a
	}
	if s.Size() > u.Size() {
		return s
	}
	switch u.Size() {
	case 1:
		return Int16
	case 2:
		return Int32
	case 4:
		return Int64
	default:
		return Float64
	}
}

// CanHold reports whether values of type src can be stored in dst without
// loss, i.e. Promote(src, dst) == dst.
func CanHold(dst, src DType) bool {
	return dst.Valid() && src.Valid() && Promote(src, dst) == dst
}

func larger(a, b DType) DType {
	if a.Size() >= b.Size() {
		return a
	}
	return b
}
