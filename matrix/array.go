package matrix

import "context"

// Array is a range-addressable 2-D store.
//
// Implementations must allow concurrent Read calls and concurrent
// Accumulate calls that touch disjoint rectangles.
type Array interface {
	// Shape returns {rows, cols}.
	Shape() Shape
	// DType returns the element type.
	DType() DType
	// Read materializes [rowLo, rowHi) x [colLo, colHi).
	// It returns an *OutOfBoundsError if the range exceeds the shape.
	Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*Block, error)
	// Accumulate adds blk element-wise into [rowLo, rowHi) x [colLo, colHi).
	// blk must be (rowHi-rowLo) x (colHi-colLo).
	Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *Block) error
}

// Allocator creates zero-initialized arrays.
type Allocator interface {
	Allocate(ctx context.Context, rows, cols int, dtype DType) (Array, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(ctx context.Context, rows, cols int, dtype DType) (Array, error)

// Allocate implements Allocator.
func (f AllocatorFunc) Allocate(ctx context.Context, rows, cols int, dtype DType) (Array, error) {
	return f(ctx, rows, cols, dtype)
}

// Syncer is implemented by arrays that buffer writes and can flush them.
type Syncer interface {
	Sync() error
}

func checkBlock(blk *Block, rowLo, rowHi, colLo, colHi int) error {
	if blk == nil || blk.Rows != rowHi-rowLo || blk.Cols != colHi-colLo || len(blk.Data) != blk.Rows*blk.Cols {
		got := Shape{0, 0}
		if blk != nil {
			got = Shape{blk.Rows, blk.Cols}
		}
		return &ShapeMismatchError{
			Reason:   "accumulate block",
			Expected: Shape{rowHi - rowLo, colHi - colLo},
			Actual:   got,
		}
	}
	return nil
}

// CheckAccumulate validates an Accumulate call against shape: the range
// must be inside the array and blk must match the range extent.
func CheckAccumulate(shape Shape, rowLo, rowHi, colLo, colHi int, blk *Block) error {
	if err := CheckBounds(shape, rowLo, rowHi, colLo, colHi); err != nil {
		return err
	}
	return checkBlock(blk, rowLo, rowHi, colLo, colHi)
}
