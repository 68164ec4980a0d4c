package plan

import "github.com/hupe1980/tilemat/matrix"

// Validate checks that a (m x k) and b (k x n) are conformable and, when
// out is non-nil, that out is m x n.
func Validate(a, b, out matrix.Shape) error {
	if a.Rank() != 2 {
		return &matrix.RankError{Operand: "a", Rank: a.Rank()}
	}
	if b.Rank() != 2 {
		return &matrix.RankError{Operand: "b", Rank: b.Rank()}
	}
	if a.Cols() != b.Rows() {
		return &matrix.ShapeMismatchError{
			Reason:   "last dimension of a does not match first dimension of b",
			Expected: matrix.Shape{a.Cols(), b.Cols()},
			Actual:   b,
		}
	}
	if out == nil {
		return nil
	}
	if out.Rank() != 2 {
		return &matrix.RankError{Operand: "out", Rank: out.Rank()}
	}
	want := matrix.Shape{a.Rows(), b.Cols()}
	if !out.Equal(want) {
		return &matrix.ShapeMismatchError{
			Reason:   "out does not have the correct shape",
			Expected: want,
			Actual:   out,
		}
	}
	return nil
}

// ValidateDType returns the promoted element type of a and b. When out is
// not Invalid it must be able to hold the promoted type.
//
// Tiles are computed in float64, which represents every integer up to 2^53
// exactly. 64-bit integer operands, results and outputs are rejected.
func ValidateDType(a, b, out matrix.DType) (matrix.DType, error) {
	promoted := matrix.Promote(a, b)
	if promoted == matrix.Invalid {
		return matrix.Invalid, &matrix.DTypeMismatchError{Promoted: promoted, Output: out}
	}
	for _, d := range []matrix.DType{a, b, promoted, out} {
		if is64BitInt(d) {
			return promoted, &matrix.DTypeMismatchError{
				Promoted: promoted,
				Output:   out,
				Reason:   d.String() + " elements are not supported by the float64 tile kernel",
			}
		}
	}
	if out != matrix.Invalid && !matrix.CanHold(out, promoted) {
		return promoted, &matrix.DTypeMismatchError{Promoted: promoted, Output: out}
	}
	return promoted, nil
}

func is64BitInt(d matrix.DType) bool {
	return d == matrix.Int64 || d == matrix.Uint64
}
