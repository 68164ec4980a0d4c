package testutil

import (
	"errors"
	"testing"

	"github.com/hupe1980/tilemat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniform(t *testing.T) {
	rng := NewRNG(4711)

	a := rng.Uniform(8, 32, matrix.Float64)
	assert.Equal(t, matrix.Shape{8, 32}, a.Shape())
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}

	rng.Reset()
	b := rng.Uniform(8, 32, matrix.Float64)
	assert.Equal(t, a.Data(), b.Data(), "Reset replays the sequence")
}

func TestInts(t *testing.T) {
	a := NewRNG(1).Ints(4, 4, -3, 3, matrix.Int32)
	for _, v := range a.Data() {
		assert.GreaterOrEqual(t, v, -3.0)
		assert.Less(t, v, 3.0)
		assert.Equal(t, v, float64(int(v)))
	}
}

func TestLinspace(t *testing.T) {
	d := Linspace(2, 3, 0, 1)
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}, d.Data(), 1e-15)
	assert.Equal(t, []float64{5}, Linspace(1, 1, 5, 9).Data())
}

func TestReference(t *testing.T) {
	a, err := matrix.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	b, err := matrix.FromRows([][]float64{{7, 8}, {9, 10}, {11, 12}})
	require.NoError(t, err)

	assert.Equal(t, []float64{58, 64, 139, 154}, Reference(a, b).Data())
	assert.Equal(t, a.Data(), Reference(Identity(2, matrix.Float64), a).Data())
}

func TestMaxAbsDiff(t *testing.T) {
	x := Linspace(1, 3, 0, 2)
	y := Linspace(1, 3, 0, 2)
	y.Set(0, 2, 2.5)
	assert.Equal(t, 0.5, MaxAbsDiff(x, y))
	assert.True(t, MaxAbsDiff(x, Linspace(3, 1, 0, 2)) > 1e300)
}

func TestCountingArray(t *testing.T) {
	c := NewCountingArray(matrix.NewDense(2, 2, matrix.Float64))

	_, err := c.Read(t.Context(), 0, 1, 0, 2)
	require.NoError(t, err)
	require.NoError(t, c.Accumulate(t.Context(), 0, 1, 0, 1, matrix.NewBlock(1, 1)))

	assert.Equal(t, int64(1), c.Reads())
	assert.Equal(t, int64(1), c.Accumulates())
	assert.Equal(t, []Call{
		{Op: "read", Rows: matrix.Range{Lo: 0, Hi: 1}, Cols: matrix.Range{Lo: 0, Hi: 2}},
		{Op: "accumulate", Rows: matrix.Range{Lo: 0, Hi: 1}, Cols: matrix.Range{Lo: 0, Hi: 1}},
	}, c.Calls())
}

func TestFailingArray(t *testing.T) {
	boom := errors.New("boom")
	f := NewFailingArray(matrix.NewDense(1, 1, matrix.Float64), 2, boom)

	_, err := f.Read(t.Context(), 0, 1, 0, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Accumulate(t.Context(), 0, 1, 0, 1, matrix.NewBlock(1, 1)), boom)
	_, err = f.Read(t.Context(), 0, 1, 0, 1)
	assert.ErrorIs(t, err, boom)
}
