package plan

import (
	"testing"

	"github.com/hupe1980/tilemat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		a, b    matrix.Shape
		out     matrix.Shape
		wantErr error
	}{
		{"conformable", matrix.Shape{5, 3}, matrix.Shape{3, 7}, nil, nil},
		{"with out", matrix.Shape{5, 3}, matrix.Shape{3, 7}, matrix.Shape{5, 7}, nil},
		{"zero inner", matrix.Shape{3, 0}, matrix.Shape{0, 3}, matrix.Shape{3, 3}, nil},
		{"rank a", matrix.Shape{5}, matrix.Shape{5, 7}, nil, matrix.ErrRank},
		{"rank b", matrix.Shape{5, 3}, matrix.Shape{3, 7, 1}, nil, matrix.ErrRank},
		{"rank out", matrix.Shape{5, 3}, matrix.Shape{3, 7}, matrix.Shape{35}, matrix.ErrRank},
		{"inner mismatch", matrix.Shape{5, 3}, matrix.Shape{4, 7}, nil, matrix.ErrShapeMismatch},
		{"out mismatch", matrix.Shape{5, 3}, matrix.Shape{3, 7}, matrix.Shape{7, 5}, matrix.ErrShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.a, tt.b, tt.out)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateDType(t *testing.T) {
	dt, err := ValidateDType(matrix.Int32, matrix.Float32, matrix.Invalid)
	require.NoError(t, err)
	assert.Equal(t, matrix.Float64, dt)

	_, err = ValidateDType(matrix.Float64, matrix.Float64, matrix.Float32)
	assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)

	dt, err = ValidateDType(matrix.Float32, matrix.Float32, matrix.Float64)
	require.NoError(t, err)
	assert.Equal(t, matrix.Float32, dt)

	_, err = ValidateDType(matrix.Invalid, matrix.Float32, matrix.Invalid)
	assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)
}

func TestValidateDType_64BitIntegers(t *testing.T) {
	tests := []struct {
		name    string
		a, b    matrix.DType
		out     matrix.DType
		wantErr bool
	}{
		{"int64 operand", matrix.Int64, matrix.Int8, matrix.Invalid, true},
		{"uint64 operand", matrix.Uint8, matrix.Uint64, matrix.Invalid, true},
		{"promoted to int64", matrix.Int32, matrix.Uint32, matrix.Invalid, true},
		{"int64 output", matrix.Int32, matrix.Int32, matrix.Int64, true},
		{"int32 is fine", matrix.Int16, matrix.Uint16, matrix.Int32, false},
		{"int64 with float64", matrix.Int64, matrix.Float64, matrix.Float64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDType(tt.a, tt.b, tt.out)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)

			var dErr *matrix.DTypeMismatchError
			require.ErrorAs(t, err, &dErr)
			assert.Contains(t, dErr.Error(), "64")
		})
	}
}

func TestTileEdge(t *testing.T) {
	tests := []struct {
		name   string
		buffer int64
		elem   int
		scale  int
		want   int
	}{
		// sqrt(1MiB / 8) = 362 -> 256 -> * 20
		{"default float64", DefaultBufferBytes, 8, DefaultScaleFactor, 5120},
		// sqrt(1MiB / 4) = 512 -> 512 -> * 1
		{"float32 unscaled", DefaultBufferBytes, 4, 1, 512},
		{"exact power", 64 * 8, 8, 1, 8},
		{"round down", 63 * 8, 8, 1, 4},
		{"scale zero uses default", 4 * 8, 8, 0, 2 * DefaultScaleFactor},
		{"tiny buffer", 3, 8, 1, 1},
		{"zero buffer", 0, 8, 4, 1},
		{"negative element size", 16, -1, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TileEdge(tt.buffer, tt.elem, tt.scale)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, TileEdge(tt.buffer, tt.elem, tt.scale), "must be deterministic")
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

func TestTileEdge_AlwaysPositive(t *testing.T) {
	for buf := int64(-4); buf < 4096; buf += 7 {
		for _, elem := range []int{1, 2, 4, 8} {
			assert.GreaterOrEqual(t, TileEdge(buf, elem, 1), 1)
		}
	}
}

func TestWorkingSetBytes(t *testing.T) {
	assert.Equal(t, int64(3*4*4*8), WorkingSetBytes(4, 8))
}

func TestGrid_WorkingSetBytes(t *testing.T) {
	// 5x3 · 3x7 with edge 2: interior tile 2x2 with inner 2.
	g := NewGrid(5, 3, 7, 2)
	assert.Equal(t, int64((2*2+2*2+2*2)*8), g.WorkingSetBytes(0, 8))
	// Last tile is 1x1 (row 4, col 6).
	assert.Equal(t, int64((1*2+2*1+1*1)*8), g.WorkingSetBytes(g.OutputTiles()-1, 8))

	// A small product under a huge edge is sized by its real extent.
	g = NewGrid(5, 3, 7, 5120)
	assert.Equal(t, int64((5*3+3*7+5*7)*8), g.WorkingSetBytes(0, 8))
	assert.Less(t, g.WorkingSetBytes(0, 8), WorkingSetBytes(5120, 8))
}

func TestGrid_Clipping(t *testing.T) {
	// 5x3 · 3x7 with edge 2: nothing divides evenly.
	g := NewGrid(5, 3, 7, 2)
	assert.Equal(t, 3, g.RowTiles())
	assert.Equal(t, 4, g.ColTiles())
	assert.Equal(t, 2, g.InnerTiles())
	assert.Equal(t, 12, g.OutputTiles())

	count := 0
	covered := make([]int, 5*7)
	for tile := range g.All() {
		count++
		require.True(t, tile.Row.Within(5), "row %v", tile.Row)
		require.True(t, tile.Col.Within(7), "col %v", tile.Col)
		require.True(t, tile.Inner.Within(3), "inner %v", tile.Inner)
		require.False(t, tile.Inner.Empty())
		for r := tile.Row.Lo; r < tile.Row.Hi; r++ {
			for c := tile.Col.Lo; c < tile.Col.Hi; c++ {
				covered[r*7+c] += tile.Inner.Len()
			}
		}
	}
	assert.Equal(t, 12*2, count)
	for i, n := range covered {
		assert.Equal(t, 3, n, "element %d must see the full reduction", i)
	}

	rows, cols := g.OutputTile(g.Index(2, 3))
	assert.Equal(t, matrix.Range{Lo: 4, Hi: 5}, rows)
	assert.Equal(t, matrix.Range{Lo: 6, Hi: 7}, cols)
}

func TestGrid_ZeroDimensions(t *testing.T) {
	g := NewGrid(3, 0, 3, 4)
	assert.Equal(t, 1, g.OutputTiles())
	assert.Equal(t, 0, g.InnerTiles())

	n := 0
	for range g.All() {
		n++
	}
	assert.Zero(t, n)

	assert.Zero(t, NewGrid(0, 3, 3, 4).OutputTiles())
	assert.Zero(t, NewGrid(3, 3, 0, 4).OutputTiles())
}

func TestGrid_EarlyStop(t *testing.T) {
	g := NewGrid(8, 8, 8, 2)
	n := 0
	for range g.All() {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}
