package matrix

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape is the extent of an array along each axis.
// Arrays handled by this module are rank 2: Shape{rows, cols}.
type Shape []int

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s) }

// Rows returns the extent of axis 0 (0 for rank < 1).
func (s Shape) Rows() int {
	if len(s) < 1 {
		return 0
	}
	return s[0]
}

// Cols returns the extent of axis 1 (0 for rank < 2).
func (s Shape) Cols() int {
	if len(s) < 2 {
		return 0
	}
	return s[1]
}

// Size returns the number of elements.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether both shapes have the same rank and extents.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// String formats the shape as "(r, c)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Range is a half-open index interval [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool { return r.Hi <= r.Lo }

// Clip returns r restricted to [0, bound).
func (r Range) Clip(bound int) Range {
	return Range{Lo: max(0, min(r.Lo, bound)), Hi: max(0, min(r.Hi, bound))}
}

// Within reports whether r lies inside [0, bound) and is well-formed.
func (r Range) Within(bound int) bool {
	return r.Lo >= 0 && r.Lo <= r.Hi && r.Hi <= bound
}

func (r Range) String() string { return fmt.Sprintf("[%d:%d)", r.Lo, r.Hi) }

// CheckBounds returns an *OutOfBoundsError unless the rectangle
// [rowLo, rowHi) x [colLo, colHi) lies inside shape.
func CheckBounds(shape Shape, rowLo, rowHi, colLo, colHi int) error {
	rows := Range{Lo: rowLo, Hi: rowHi}
	cols := Range{Lo: colLo, Hi: colHi}
	if shape.Rank() == 2 && rows.Within(shape.Rows()) && cols.Within(shape.Cols()) {
		return nil
	}
	return &OutOfBoundsError{Shape: shape, Rows: rows, Cols: cols}
}
