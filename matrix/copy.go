package matrix

import "context"

// Copy streams src into the zero-initialized dst in bands of at most
// bandRows rows, so neither array is materialized as a whole.
func Copy(ctx context.Context, dst, src Array, bandRows int) error {
	if !dst.Shape().Equal(src.Shape()) {
		return &ShapeMismatchError{Reason: "copy", Expected: src.Shape(), Actual: dst.Shape()}
	}
	rows, cols := src.Shape().Rows(), src.Shape().Cols()
	if bandRows < 1 {
		bandRows = 1
	}
	if cols == 0 {
		return nil
	}
	for lo := 0; lo < rows; lo += bandRows {
		hi := min(lo+bandRows, rows)
		blk, err := src.Read(ctx, lo, hi, 0, cols)
		if err != nil {
			return NewIOError("read", "src", Range{lo, hi}, Range{0, cols}, err)
		}
		if err := dst.Accumulate(ctx, lo, hi, 0, cols, blk); err != nil {
			return NewIOError("accumulate", "dst", Range{lo, hi}, Range{0, cols}, err)
		}
	}
	return nil
}
