package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrRank is matched by *RankError.
	ErrRank = errors.New("only 2-D arrays supported")
	// ErrShapeMismatch is matched by *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDTypeMismatch is matched by *DTypeMismatchError.
	ErrDTypeMismatch = errors.New("dtype mismatch")
	// ErrOutOfBounds is matched by *OutOfBoundsError.
	ErrOutOfBounds = errors.New("range out of bounds")
	// ErrIO is matched by *IOError.
	ErrIO = errors.New("storage I/O failure")
)

// RankError reports an operand that is not two-dimensional.
type RankError struct {
	Operand string
	Rank    int
}

func (e *RankError) Error() string {
	return fmt.Sprintf("%s: operand %q has rank %d", ErrRank, e.Operand, e.Rank)
}

func (e *RankError) Is(target error) bool { return target == ErrRank }

// ShapeMismatchError reports non-conformable operands or a wrongly shaped output.
type ShapeMismatchError struct {
	Reason   string
	Expected Shape
	Actual   Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %v, got %v", ErrShapeMismatch, e.Reason, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// DTypeMismatchError reports an output whose element type cannot hold the
// promoted operand type, or an element type the product cannot compute
// exactly.
type DTypeMismatchError struct {
	Promoted DType
	Output   DType
	// Reason overrides the default message when set.
	Reason string
}

func (e *DTypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", ErrDTypeMismatch, e.Reason)
	}
	return fmt.Sprintf("%s: output %s cannot hold promoted %s", ErrDTypeMismatch, e.Output, e.Promoted)
}

func (e *DTypeMismatchError) Is(target error) bool { return target == ErrDTypeMismatch }

// OutOfBoundsError reports a rectangular access outside an array's shape.
type OutOfBoundsError struct {
	Shape Shape
	Rows  Range
	Cols  Range
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: rows %v cols %v on shape %v", ErrOutOfBounds, e.Rows, e.Cols, e.Shape)
}

func (e *OutOfBoundsError) Is(target error) bool { return target == ErrOutOfBounds }

// IOError wraps a failure reported by a storage backend.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op      string // "read", "accumulate" or "allocate"
	Operand string
	Rows    Range
	Cols    Range
	cause   error
}

// NewIOError wraps cause. It returns cause unchanged if it already is an
// *IOError or an *OutOfBoundsError.
func NewIOError(op, operand string, rows, cols Range, cause error) error {
	if cause == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(cause, &ioe) || errors.Is(cause, ErrOutOfBounds) {
		return cause
	}
	return &IOError{Op: op, Operand: operand, Rows: rows, Cols: cols, cause: cause}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s rows %v cols %v: %v", ErrIO, e.Op, e.Operand, e.Rows, e.Cols, e.cause)
}

func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.cause }
