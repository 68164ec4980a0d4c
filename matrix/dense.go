package matrix

import (
	"context"
	"fmt"
)

// Dense is an in-memory array backed by one contiguous row-major slice.
// Values are kept as float64 and cast to the array's dtype on write.
type Dense struct {
	rows, cols int
	dtype      DType
	data       []float64
}

// NewDense allocates a zeroed rows x cols array.
func NewDense(rows, cols int, dtype DType) *Dense {
	if !dtype.Valid() {
		dtype = Float64
	}
	return &Dense{rows: rows, cols: cols, dtype: dtype, data: make([]float64, rows*cols)}
}

// NewDenseFrom wraps data (row-major, len rows*cols) without copying.
func NewDenseFrom(rows, cols int, dtype DType, data []float64) (*Dense, error) {
	if len(data) != rows*cols {
		return nil, &ShapeMismatchError{
			Reason:   "dense data length",
			Expected: Shape{rows, cols},
			Actual:   Shape{len(data)},
		}
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	return &Dense{rows: rows, cols: cols, dtype: dtype, data: data}, nil
}

// FromRows builds a float64 array from a slice of equally long rows.
func FromRows(rows [][]float64) (*Dense, error) {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	d := NewDense(r, c, Float64)
	for i, row := range rows {
		if len(row) != c {
			return nil, &ShapeMismatchError{Reason: "ragged rows", Expected: Shape{c}, Actual: Shape{len(row)}}
		}
		copy(d.data[i*c:], row)
	}
	return d, nil
}

func (d *Dense) Shape() Shape { return Shape{d.rows, d.cols} }

func (d *Dense) DType() DType { return d.dtype }

// Data returns the backing slice.
func (d *Dense) Data() []float64 { return d.data }

// At returns the element at (r, c).
func (d *Dense) At(r, c int) float64 { return d.data[r*d.cols+c] }

// Set stores v at (r, c) after casting it to the array's dtype.
func (d *Dense) Set(r, c int, v float64) { d.data[r*d.cols+c] = Cast(v, d.dtype) }

// Read implements Array.
func (d *Dense) Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*Block, error) {
	if err := CheckBounds(d.Shape(), rowLo, rowHi, colLo, colHi); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blk := NewBlock(rowHi-rowLo, colHi-colLo)
	for r := rowLo; r < rowHi; r++ {
		copy(blk.Row(r-rowLo), d.data[r*d.cols+colLo:r*d.cols+colHi])
	}
	return blk, nil
}

// Accumulate implements Array.
func (d *Dense) Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *Block) error {
	if err := CheckAccumulate(d.Shape(), rowLo, rowHi, colLo, colHi, blk); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for r := 0; r < blk.Rows; r++ {
		row := d.data[(rowLo+r)*d.cols+colLo : (rowLo+r)*d.cols+colHi]
		for c, v := range blk.Row(r) {
			row[c] = Cast(row[c]+v, d.dtype)
		}
	}
	return nil
}

// DenseAllocator allocates in-memory arrays.
type DenseAllocator struct{}

// Allocate implements Allocator.
func (DenseAllocator) Allocate(_ context.Context, rows, cols int, dtype DType) (Array, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("invalid dtype %v", dtype)
	}
	return NewDense(rows, cols, dtype), nil
}
