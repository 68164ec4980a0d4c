package matrix

// Block is a dense, row-major rectangle of values held in memory.
type Block struct {
	Rows int
	Cols int
	Data []float64
}

// NewBlock allocates a zeroed rows x cols block.
func NewBlock(rows, cols int) *Block {
	return &Block{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the element at (r, c).
func (b *Block) At(r, c int) float64 { return b.Data[r*b.Cols+c] }

// Set stores v at (r, c).
func (b *Block) Set(r, c int, v float64) { b.Data[r*b.Cols+c] = v }

// Row returns row r as a slice aliasing the block's storage.
func (b *Block) Row(r int) []float64 { return b.Data[r*b.Cols : (r+1)*b.Cols] }

// Bytes returns the in-memory footprint of the block's values.
func (b *Block) Bytes() int64 { return int64(len(b.Data)) * 8 }

// Reshape resizes the block to rows x cols and zeroes it, reusing the
// backing array when it is large enough.
func (b *Block) Reshape(rows, cols int) {
	n := rows * cols
	if cap(b.Data) < n {
		b.Data = make([]float64, n)
	} else {
		b.Data = b.Data[:n]
		clear(b.Data)
	}
	b.Rows, b.Cols = rows, cols
}

// AddTo adds b element-wise into the rows x cols window of dst starting at
// (r0, c0), where dst is row-major with stride cols.
func (b *Block) AddTo(dst []float64, stride, r0, c0 int) {
	for r := 0; r < b.Rows; r++ {
		row := dst[(r0+r)*stride+c0 : (r0+r)*stride+c0+b.Cols]
		for c, v := range b.Row(r) {
			row[c] += v
		}
	}
}
