// Package kernel holds the in-memory dense product used on each tile.
package kernel

import (
	"github.com/ajroetker/go-highway/hwy/contrib/matmul"

	"github.com/hupe1980/tilemat/matrix"
)

// MulInto stores a · b in dst, reshaping dst to a.Rows x b.Cols.
// a.Cols must equal b.Rows.
//
// The product runs on the cache-blocked SIMD kernel selected for the
// current CPU at start-up.
func MulInto(dst, a, b *matrix.Block) {
	m, k, n := a.Rows, a.Cols, b.Cols
	dst.Reshape(m, n)
	if m == 0 || n == 0 {
		return
	}
	matmul.BlockedMatMul(a.Data[:m*k], b.Data[:k*n], dst.Data, m, n, k)
}
