package testutil

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/tilemat/matrix"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with uniform values in [0, 1).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float64()
	}
}

// Uniform returns a rows x cols array of uniform values in [0, 1), cast to
// dtype.
func (r *RNG) Uniform(rows, cols int, dtype matrix.DType) *matrix.Dense {
	d := matrix.NewDense(rows, cols, dtype)
	r.FillUniform(d.Data())
	for i, v := range d.Data() {
		d.Data()[i] = matrix.Cast(v, dtype)
	}
	return d
}

// Ints returns a rows x cols array of integers in [lo, hi). Products of
// such arrays are exact in float64, which makes them suitable for
// bit-for-bit comparisons.
func (r *RNG) Ints(rows, cols, lo, hi int, dtype matrix.DType) *matrix.Dense {
	d := matrix.NewDense(rows, cols, dtype)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range d.Data() {
		d.Data()[i] = float64(lo + r.rand.Intn(hi-lo))
	}
	return d
}

// Linspace returns count evenly spaced values over [lo, hi], reshaped to
// rows x cols.
func Linspace(rows, cols int, lo, hi float64) *matrix.Dense {
	d := matrix.NewDense(rows, cols, matrix.Float64)
	n := rows * cols
	if n == 1 {
		d.Data()[0] = lo
		return d
	}
	step := (hi - lo) / float64(n-1)
	for i := range d.Data() {
		d.Data()[i] = lo + float64(i)*step
	}
	return d
}

// Identity returns the n x n identity matrix.
func Identity(n int, dtype matrix.DType) *matrix.Dense {
	d := matrix.NewDense(n, n, dtype)
	for i := range n {
		d.Set(i, i, 1)
	}
	return d
}

// Reference computes a · b with the textbook triple loop.
func Reference(a, b *matrix.Dense) *matrix.Dense {
	m, k, n := a.Shape().Rows(), a.Shape().Cols(), b.Shape().Cols()
	out := matrix.NewDense(m, n, matrix.Promote(a.DType(), b.DType()))
	for i := range m {
		for j := range n {
			var sum float64
			for p := range k {
				sum += a.At(i, p) * b.At(p, j)
			}
			out.Set(i, j, sum)
		}
	}
	return out
}

// ReadAll materializes a whole array.
func ReadAll(ctx context.Context, a matrix.Array) (*matrix.Dense, error) {
	s := a.Shape()
	blk, err := a.Read(ctx, 0, s.Rows(), 0, s.Cols())
	if err != nil {
		return nil, err
	}
	return matrix.NewDenseFrom(blk.Rows, blk.Cols, a.DType(), blk.Data)
}

// MaxAbsDiff returns the largest element-wise absolute difference of two
// equally shaped arrays, or +Inf if the shapes differ.
func MaxAbsDiff(x, y *matrix.Dense) float64 {
	if !x.Shape().Equal(y.Shape()) {
		return math.Inf(1)
	}
	var d float64
	for i, v := range x.Data() {
		d = max(d, math.Abs(v-y.Data()[i]))
	}
	return d
}

// Tolerance is a bound for the rounding difference between a tiled and a
// reference product with reduction length k and entries of magnitude at
// most scale.
func Tolerance(k int, scale float64) float64 {
	return float64(max(k, 1)) * scale * scale * 1e-12
}
