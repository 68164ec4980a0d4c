package kernel

import (
	"math"
	"testing"

	"github.com/hupe1980/tilemat/matrix"
	"github.com/stretchr/testify/assert"
)

func TestMulInto(t *testing.T) {
	a := &matrix.Block{Rows: 2, Cols: 3, Data: []float64{1, 2, 3, 4, 5, 6}}
	b := &matrix.Block{Rows: 3, Cols: 2, Data: []float64{7, 8, 9, 10, 11, 12}}

	dst := &matrix.Block{}
	MulInto(dst, a, b)

	assert.Equal(t, 2, dst.Rows)
	assert.Equal(t, 2, dst.Cols)
	assert.Equal(t, []float64{58, 64, 139, 154}, dst.Data)
}

func TestMulInto_ReusesAndZeroes(t *testing.T) {
	a := &matrix.Block{Rows: 1, Cols: 1, Data: []float64{2}}
	b := &matrix.Block{Rows: 1, Cols: 5, Data: []float64{1, 2, 3, 4, 5}}

	dst := matrix.NewBlock(4, 4)
	for i := range dst.Data {
		dst.Data[i] = 99
	}
	backing := &dst.Data[0]

	MulInto(dst, a, b)
	assert.Equal(t, []float64{2, 4, 6, 8, 10}, dst.Data)
	assert.Same(t, backing, &dst.Data[0], "large enough buffers are reused")
}

func TestMulInto_EmptyInner(t *testing.T) {
	a := &matrix.Block{Rows: 2, Cols: 0}
	b := &matrix.Block{Rows: 0, Cols: 3}

	dst := &matrix.Block{}
	MulInto(dst, a, b)
	assert.Equal(t, make([]float64, 6), dst.Data)
}

func TestMulInto_MatchesReference(t *testing.T) {
	// Sizes straddle the SIMD micro-tile and cache block edges.
	for _, sz := range [][3]int{{1, 1, 1}, {3, 5, 7}, {4, 16, 8}, {49, 17, 50}, {97, 64, 33}} {
		m, k, n := sz[0], sz[1], sz[2]
		a := matrix.NewBlock(m, k)
		b := matrix.NewBlock(k, n)
		for i := range a.Data {
			a.Data[i] = float64(i%11) - 5
		}
		for i := range b.Data {
			b.Data[i] = float64(i%7) - 3
		}

		want := make([]float64, m*n)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var sum float64
				for p := 0; p < k; p++ {
					sum += a.Data[i*k+p] * b.Data[p*n+j]
				}
				want[i*n+j] = sum
			}
		}

		dst := &matrix.Block{}
		MulInto(dst, a, b)
		assert.Equal(t, want, dst.Data, "%dx%dx%d", m, k, n)
	}
}

func TestMulInto_PropagatesNaN(t *testing.T) {
	a := &matrix.Block{Rows: 1, Cols: 2, Data: []float64{0, math.NaN()}}
	b := &matrix.Block{Rows: 2, Cols: 1, Data: []float64{1, 0}}

	dst := &matrix.Block{}
	MulInto(dst, a, b)
	assert.True(t, math.IsNaN(dst.Data[0]))
}

func BenchmarkMulInto(b *testing.B) {
	const n = 128
	x := matrix.NewBlock(n, n)
	y := matrix.NewBlock(n, n)
	for i := range x.Data {
		x.Data[i] = float64(i % 7)
		y.Data[i] = float64(i % 5)
	}
	dst := &matrix.Block{}

	b.ResetTimer()
	for b.Loop() {
		MulInto(dst, x, y)
	}
}
