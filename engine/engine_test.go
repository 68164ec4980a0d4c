package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/chunkstore"
	"github.com/hupe1980/tilemat/filestore"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
	"github.com/hupe1980/tilemat/testutil"
)

func mustRows(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	d, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return d
}

func readAll(t *testing.T, a matrix.Array) *matrix.Dense {
	t.Helper()
	d, err := testutil.ReadAll(t.Context(), a)
	require.NoError(t, err)
	return d
}

func TestTileEdge(t *testing.T) {
	e := New()
	assert.Equal(t, 5120, e.TileEdge(matrix.Float64))
	assert.Equal(t, 10240, e.TileEdge(matrix.Float32))

	assert.Equal(t, 2, New(WithTileEdge(2)).TileEdge(matrix.Float64))
	assert.Equal(t, 20, New(WithBufferSize(8)).TileEdge(matrix.Float64))
	assert.Equal(t, 1, New(WithBufferSize(8), WithScaleFactor(1)).TileEdge(matrix.Float64))
}

func TestMultiply_Identity(t *testing.T) {
	a := testutil.Identity(4, matrix.Float64)
	b := mustRows(t, [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
		{13, 14, 15, 16},
	})

	out, report, err := New(WithTileEdge(2)).MultiplyReport(t.Context(), a, b, nil)
	require.NoError(t, err)

	assert.Equal(t, b.Data(), readAll(t, out).Data())
	assert.Equal(t, 4, report.Grid.OutputTiles())
	assert.Equal(t, 2, report.Grid.InnerTiles())
	assert.True(t, report.Complete())
	assert.Empty(t, report.Pending())
}

func TestMultiply_RaggedTiles(t *testing.T) {
	rng := testutil.NewRNG(42)
	a := rng.Ints(5, 3, -4, 5, matrix.Float64)
	b := rng.Ints(3, 7, -4, 5, matrix.Float64)

	ca, cb := testutil.NewCountingArray(a), testutil.NewCountingArray(b)
	out, report, err := New(WithTileEdge(2)).MultiplyReport(t.Context(), ca, cb, nil)
	require.NoError(t, err)

	assert.Equal(t, matrix.Shape{5, 7}, out.Shape())
	assert.Equal(t, testutil.Reference(a, b).Data(), readAll(t, out).Data())

	// 3 x 4 output tiles, 2 reduction tiles each.
	assert.Equal(t, 12, report.Grid.OutputTiles())
	assert.Equal(t, int64(24), ca.Reads())
	assert.Equal(t, int64(24), cb.Reads())
	assert.Equal(t, int64(48), report.Reads)
	assert.Equal(t, int64(24), report.Accumulates)
	assert.Equal(t, int64((5*3*4+3*7*3)*8), report.BytesRead)

	for _, c := range ca.Calls() {
		assert.LessOrEqual(t, c.Rows.Len(), 2)
		assert.LessOrEqual(t, c.Cols.Len(), 2)
		assert.True(t, c.Rows.Within(5) && c.Cols.Within(3))
	}
}

func TestMultiply_AccumulatesIntoOut(t *testing.T) {
	a := mustRows(t, [][]float64{{1, 2}, {3, 4}})
	b := mustRows(t, [][]float64{{5, 6}, {7, 8}})
	out := mustRows(t, [][]float64{{1, 1}, {1, 1}})

	res, err := New(WithTileEdge(1)).Multiply(t.Context(), a, b, out)
	require.NoError(t, err)
	assert.Same(t, out, res)
	assert.Equal(t, []float64{20, 23, 44, 51}, out.Data())
}

func TestMultiply_ZeroSize(t *testing.T) {
	tests := []struct {
		name    string
		m, k, n int
	}{
		{"empty inner", 3, 0, 4},
		{"empty rows", 0, 3, 4},
		{"empty cols", 3, 4, 0},
		{"all empty", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca := testutil.NewCountingArray(matrix.NewDense(tt.m, tt.k, matrix.Float64))
			cb := testutil.NewCountingArray(matrix.NewDense(tt.k, tt.n, matrix.Float64))

			out, report, err := New(WithTileEdge(2)).MultiplyReport(t.Context(), ca, cb, nil)
			require.NoError(t, err)

			assert.Equal(t, matrix.Shape{tt.m, tt.n}, out.Shape())
			assert.Equal(t, make([]float64, tt.m*tt.n), readAll(t, out).Data())
			assert.Zero(t, ca.Reads()+cb.Reads())
			assert.Zero(t, report.Reads)
		})
	}
}

func TestMultiply_ShapeErrors(t *testing.T) {
	ca := testutil.NewCountingArray(matrix.NewDense(5, 3, matrix.Float64))
	cb := testutil.NewCountingArray(matrix.NewDense(3, 7, matrix.Float64))
	co := testutil.NewCountingArray(matrix.NewDense(5, 6, matrix.Float64))

	_, report, err := New().MultiplyReport(t.Context(), ca, cb, co)
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
	assert.Nil(t, report)
	assert.Zero(t, ca.Reads()+cb.Reads()+co.Reads()+co.Accumulates())

	_, err = New().Multiply(t.Context(), cb, ca, nil)
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)

	var mismatch *matrix.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, matrix.Shape{7, 3}, mismatch.Expected)
}

func TestMultiply_DTypes(t *testing.T) {
	a := matrix.NewDense(2, 2, matrix.Int16)
	b := matrix.NewDense(2, 2, matrix.Uint16)

	out, err := New().Multiply(t.Context(), a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, matrix.Int32, out.DType())

	_, err = New().Multiply(t.Context(), a, b, matrix.NewDense(2, 2, matrix.Int16))
	assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)

	_, err = New().Multiply(t.Context(), a, b, matrix.NewDense(2, 2, matrix.Float64))
	assert.NoError(t, err)
}

func TestMultiply_NilOperand(t *testing.T) {
	_, err := New().Multiply(t.Context(), nil, matrix.NewDense(1, 1, matrix.Float64), nil)
	assert.ErrorIs(t, err, ErrNilOperand)
}

func TestMultiply_Workers(t *testing.T) {
	rng := testutil.NewRNG(7)
	a := rng.Uniform(33, 17, matrix.Float64)
	b := rng.Uniform(17, 29, matrix.Float64)
	want := testutil.Reference(a, b)

	for _, workers := range []int{1, 2, 8} {
		out, report, err := New(WithTileEdge(4), WithWorkers(workers)).MultiplyReport(t.Context(), a, b, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, testutil.MaxAbsDiff(want, readAll(t, out)), testutil.Tolerance(17, 1))
		assert.Equal(t, workers, report.Workers)
		assert.True(t, report.Complete())
	}

	_, report, err := New(WithTileEdge(64), WithWorkers(8)).MultiplyReport(t.Context(), a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Workers, "never more workers than output tiles")
}

func TestMultiply_FileStore(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()
	rng := testutil.NewRNG(3)
	a := rng.Ints(9, 6, -8, 8, matrix.Int32)
	b := rng.Ints(6, 11, -8, 8, matrix.Int32)

	load := func(name string, src *matrix.Dense) *filestore.File {
		f, err := filestore.Create(filepath.Join(dir, name), src.Shape().Rows(), src.Shape().Cols(), src.DType())
		require.NoError(t, err)
		t.Cleanup(func() { _ = f.Close() })
		require.NoError(t, matrix.Copy(ctx, f, src, 4))
		return f
	}
	fa, fb := load("a.tmat", a), load("b.tmat", b)

	alloc := filestore.NewAllocator(dir, "out")
	t.Cleanup(func() { _ = alloc.Close() })

	out, err := New(WithTileEdge(4), WithWorkers(3), WithAllocator(alloc)).Multiply(ctx, fa, fb, nil)
	require.NoError(t, err)

	assert.IsType(t, &filestore.File{}, out)
	assert.Equal(t, matrix.Int32, out.DType())
	assert.Equal(t, testutil.Reference(a, b).Data(), readAll(t, out).Data())
}

func TestMultiply_ChunkStore(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(5)
	a := rng.Uniform(10, 13, matrix.Float32)
	b := rng.Uniform(13, 8, matrix.Float64)

	load := func(name string, src *matrix.Dense) *chunkstore.Array {
		arr, err := chunkstore.Create(ctx, store, name, src.Shape().Rows(), src.Shape().Cols(), src.DType(), chunkstore.WithChunkShape(3, 5))
		require.NoError(t, err)
		require.NoError(t, matrix.Copy(ctx, arr, src, 4))
		return arr
	}
	ca, cb := load("a", a), load("b", b)

	alloc := chunkstore.NewAllocator(store, "results", chunkstore.WithChunkShape(4, 4))
	out, err := New(WithTileEdge(4), WithWorkers(2), WithAllocator(alloc)).Multiply(ctx, ca, cb, nil)
	require.NoError(t, err)

	require.Len(t, alloc.Arrays(), 1)
	assert.Equal(t, matrix.Float64, out.DType())
	assert.LessOrEqual(t, testutil.MaxAbsDiff(testutil.Reference(a, b), readAll(t, out)), testutil.Tolerance(13, 1))
}

func TestMultiply_IOFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	a := testutil.NewFailingArray(testutil.Identity(4, matrix.Float64), 3, boom)
	b := testutil.Identity(4, matrix.Float64)

	out, report, err := New(WithTileEdge(2)).MultiplyReport(t.Context(), a, b, nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, matrix.ErrIO)
	assert.ErrorIs(t, err, boom)

	var ioe *matrix.IOError
	require.ErrorAs(t, err, &ioe)
	assert.Equal(t, "read", ioe.Op)
	assert.Equal(t, "a", ioe.Operand)
	assert.Equal(t, matrix.Range{Lo: 0, Hi: 2}, ioe.Rows)

	require.NotNil(t, report)
	assert.False(t, report.Complete())
	assert.Equal(t, []uint32{0}, report.Finished.ToArray())
	assert.Equal(t, []int{1, 2, 3}, report.Pending())
}

func TestMultiply_AllocateFailure(t *testing.T) {
	boom := errors.New("no space")
	alloc := matrix.AllocatorFunc(func(context.Context, int, int, matrix.DType) (matrix.Array, error) {
		return nil, boom
	})

	_, err := New(WithAllocator(alloc)).Multiply(t.Context(), matrix.NewDense(2, 2, matrix.Float64), matrix.NewDense(2, 2, matrix.Float64), nil)
	assert.ErrorIs(t, err, matrix.ErrIO)
	assert.ErrorIs(t, err, boom)
}

func TestMultiply_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	a := testutil.NewCountingArray(testutil.Identity(4, matrix.Float64))
	_, report, err := New(WithTileEdge(2)).MultiplyReport(ctx, a, testutil.Identity(4, matrix.Float64), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, matrix.ErrIO)
	assert.Zero(t, a.Reads())
	assert.Zero(t, report.Finished.GetCardinality())
}

func TestMultiply_MemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64, MaxWorkers: 4})
	a := testutil.NewCountingArray(testutil.Identity(4, matrix.Float64))

	_, err := New(WithTileEdge(2), WithResourceController(rc)).Multiply(t.Context(), a, testutil.Identity(4, matrix.Float64), nil)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Zero(t, a.Reads())
	assert.Zero(t, rc.MemoryUsage())

	// 3 * 2 * 2 * 8 bytes fit exactly.
	rc = resource.NewController(resource.Config{MemoryLimitBytes: 96, MaxWorkers: 4})
	_, err = New(WithTileEdge(2), WithWorkers(4), WithResourceController(rc)).Multiply(t.Context(), a, testutil.Identity(4, matrix.Float64), nil)
	require.NoError(t, err)
	assert.Zero(t, rc.MemoryUsage())
}

func TestMultiply_MemoryLimitUsesClippedTiles(t *testing.T) {
	rng := testutil.NewRNG(9)
	a := rng.Ints(5, 3, -4, 5, matrix.Float64)
	b := rng.Ints(3, 7, -4, 5, matrix.Float64)

	// The default edge is 5120; a reservation for a full tile would need
	// about 629 MB.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256 << 20})
	out, err := New(WithResourceController(rc)).Multiply(t.Context(), a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, testutil.Reference(a, b).Data(), readAll(t, out).Data())
	assert.Zero(t, rc.MemoryUsage())

	// (5*3 + 3*7 + 5*7) * 8 = 568 bytes is the exact need of the single tile.
	rc = resource.NewController(resource.Config{MemoryLimitBytes: 568})
	_, err = New(WithResourceController(rc)).Multiply(t.Context(), a, b, nil)
	require.NoError(t, err)

	rc = resource.NewController(resource.Config{MemoryLimitBytes: 567})
	_, err = New(WithResourceController(rc)).Multiply(t.Context(), a, b, nil)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
}

func TestMultiply_BufferBudgets(t *testing.T) {
	rng := testutil.NewRNG(21)
	a := rng.Uniform(13, 11, matrix.Float64)
	b := rng.Uniform(11, 9, matrix.Float64)
	want := testutil.Reference(a, b)

	tests := []struct {
		buffer   int64
		scale    int
		wantEdge int
	}{
		{8, 1, 1},
		{64, 1, 2},
		{512, 1, 8},
		{8, 3, 3},
		{128, 5, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("buffer=%d/scale=%d", tt.buffer, tt.scale), func(t *testing.T) {
			e := New(WithBufferSize(tt.buffer), WithScaleFactor(tt.scale), WithWorkers(3))
			require.Equal(t, tt.wantEdge, e.TileEdge(matrix.Float64))

			out, report, err := e.MultiplyReport(t.Context(), a, b, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEdge, report.Grid.Edge)
			assert.True(t, report.Complete())
			assert.LessOrEqual(t, testutil.MaxAbsDiff(want, readAll(t, out)), testutil.Tolerance(11, 1))
		})
	}
}

func TestMultiply_RejectsInt64(t *testing.T) {
	dir := t.TempDir()
	fa, err := filestore.Create(filepath.Join(dir, "a.tmat"), 1, 1, matrix.Int64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fa.Close() })
	fb, err := filestore.Create(filepath.Join(dir, "b.tmat"), 1, 1, matrix.Int64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fb.Close() })

	ca, cb := testutil.NewCountingArray(fa), testutil.NewCountingArray(fb)
	_, err = New().Multiply(t.Context(), ca, cb, nil)
	assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)
	assert.Zero(t, ca.Reads()+cb.Reads())

	_, err = New().Multiply(t.Context(), matrix.NewDense(1, 1, matrix.Int32), matrix.NewDense(1, 1, matrix.Uint32), nil)
	assert.ErrorIs(t, err, matrix.ErrDTypeMismatch)

	// Int32 results near the type's limit stay exact.
	a, err := matrix.NewDenseFrom(1, 2, matrix.Int32, []float64{46340, 1})
	require.NoError(t, err)
	b, err := matrix.NewDenseFrom(2, 1, matrix.Int32, []float64{46340, 3})
	require.NoError(t, err)
	out, err := New().Multiply(t.Context(), a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{46340*46340 + 3}, readAll(t, out).Data())
}

type recordingObserver struct {
	mu        sync.Mutex
	multiply  [][4]int
	tiles     int
	inner     int
	lastError error
}

func (r *recordingObserver) OnMultiply(m, k, n, edge int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.multiply = append(r.multiply, [4]int{m, k, n, edge})
	r.lastError = err
}

func (r *recordingObserver) OnTile(inner int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiles++
	r.inner += inner
}

func TestMultiply_Metrics(t *testing.T) {
	obs := &recordingObserver{}
	e := New(WithTileEdge(2), WithWorkers(2), WithMetricsObserver(obs))

	_, err := e.Multiply(t.Context(), matrix.NewDense(5, 3, matrix.Float64), matrix.NewDense(3, 7, matrix.Float64), nil)
	require.NoError(t, err)

	assert.Equal(t, [][4]int{{5, 3, 7, 2}}, obs.multiply)
	assert.Equal(t, 12, obs.tiles)
	assert.Equal(t, 24, obs.inner)
	assert.NoError(t, obs.lastError)
}
