package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilemat/internal/kernel"
	"github.com/hupe1980/tilemat/internal/pool"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/plan"
	"github.com/hupe1980/tilemat/resource"
)

// ErrNilOperand is returned when a or b is nil.
var ErrNilOperand = errors.New("engine: nil operand")

// Engine multiplies matrices tile by tile. It holds configuration only and
// is safe for concurrent use.
type Engine struct {
	bufferBytes int64
	scale       int
	tileEdge    int
	workers     int
	allocator   matrix.Allocator
	logger      *slog.Logger
	metrics     MetricsObserver
	rc          *resource.Controller
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		bufferBytes: plan.DefaultBufferBytes,
		scale:       plan.DefaultScaleFactor,
		workers:     1,
		allocator:   matrix.DenseAllocator{},
		logger:      discardLogger(),
		metrics:     NoopMetricsObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TileEdge returns the tile edge used for an output of element type dtype.
func (e *Engine) TileEdge(dtype matrix.DType) int {
	if e.tileEdge > 0 {
		return e.tileEdge
	}
	return plan.TileEdge(e.bufferBytes, dtype.Size(), e.scale)
}

// Multiply computes out += a · b and returns out. When out is nil a zeroed
// output of the promoted element type is allocated first.
func (e *Engine) Multiply(ctx context.Context, a, b, out matrix.Array) (matrix.Array, error) {
	res, _, err := e.MultiplyReport(ctx, a, b, out)
	return res, err
}

// MultiplyReport is Multiply and additionally describes the run. The
// report is non-nil whenever tiling started, including on failure.
func (e *Engine) MultiplyReport(ctx context.Context, a, b, out matrix.Array) (matrix.Array, *Report, error) {
	start := time.Now()

	if a == nil || b == nil {
		return nil, nil, ErrNilOperand
	}

	var outShape matrix.Shape
	outDType := matrix.Invalid
	if out != nil {
		outShape = out.Shape()
		outDType = out.DType()
	}
	if err := plan.Validate(a.Shape(), b.Shape(), outShape); err != nil {
		return nil, nil, err
	}
	promoted, err := plan.ValidateDType(a.DType(), b.DType(), outDType)
	if err != nil {
		return nil, nil, err
	}

	m, k, n := a.Shape().Rows(), a.Shape().Cols(), b.Shape().Cols()

	if out == nil {
		out, err = e.allocator.Allocate(ctx, m, n, promoted)
		if err != nil {
			err = wrap("allocate", "out", matrix.Range{Hi: m}, matrix.Range{Hi: n}, err)
			e.logger.ErrorContext(ctx, "multiply failed", "stage", "allocate", "error", err)
			return nil, nil, err
		}
	}

	edge := e.TileEdge(out.DType())
	grid := plan.NewGrid(m, k, n, edge)
	workers := min(e.workers, max(grid.OutputTiles(), 1))
	report := newReport(grid, workers)

	e.logger.DebugContext(ctx, "multiply plan",
		"m", m, "k", k, "n", n,
		"edge", grid.Edge,
		"output_tiles", grid.OutputTiles(),
		"inner_tiles", grid.InnerTiles(),
		"workers", workers,
	)

	err = e.run(ctx, a, b, out, grid, workers, report)
	report.Duration = time.Since(start)
	e.metrics.OnMultiply(m, k, n, grid.Edge, report.Duration, err)

	if err != nil {
		e.logger.ErrorContext(ctx, "multiply failed",
			"finished_tiles", report.Finished.GetCardinality(),
			"output_tiles", grid.OutputTiles(),
			"error", err,
		)
		return nil, report, err
	}
	return out, report, nil
}

func (e *Engine) run(ctx context.Context, a, b, out matrix.Array, grid plan.Grid, workers int, report *Report) error {
	// A zero-size axis leaves nothing to read or accumulate.
	if grid.OutputTiles() == 0 || grid.InnerTiles() == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var dispatchErr error
	for idx := range grid.OutputTiles() {
		if dispatchErr = gctx.Err(); dispatchErr != nil {
			break
		}
		// Blocks are float64 in memory whatever the stored element type.
		need := grid.WorkingSetBytes(idx, 8)
		if dispatchErr = e.rc.AcquireWorker(gctx); dispatchErr != nil {
			break
		}
		if dispatchErr = e.rc.AcquireMemory(gctx, need); dispatchErr != nil {
			e.rc.ReleaseWorker()
			break
		}

		g.Go(func() error {
			defer e.rc.ReleaseWorker()
			defer e.rc.ReleaseMemory(need)
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.outputTile(gctx, a, b, out, grid, idx, report)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if dispatchErr != nil {
		return dispatchErr
	}
	return ctx.Err()
}

// outputTile runs the reduction loop of output tile idx.
func (e *Engine) outputTile(ctx context.Context, a, b, out matrix.Array, grid plan.Grid, idx int, report *Report) (err error) {
	start := time.Now()
	var reads, accumulates, bytesRead int64
	inner := 0
	defer func() {
		e.metrics.OnTile(inner, time.Since(start), err)
	}()

	aSize, bSize := int64(a.DType().Size()), int64(b.DType().Size())
	buf := pool.Get()
	defer pool.Put(buf)

	for t := range grid.Inner(idx) {
		if err := ctx.Err(); err != nil {
			return err
		}

		at, err := a.Read(ctx, t.Row.Lo, t.Row.Hi, t.Inner.Lo, t.Inner.Hi)
		if err != nil {
			return wrap("read", "a", t.Row, t.Inner, err)
		}
		bt, err := b.Read(ctx, t.Inner.Lo, t.Inner.Hi, t.Col.Lo, t.Col.Hi)
		if err != nil {
			return wrap("read", "b", t.Inner, t.Col, err)
		}
		reads += 2
		bytesRead += int64(len(at.Data))*aSize + int64(len(bt.Data))*bSize

		kernel.MulInto(buf, at, bt)

		if err := out.Accumulate(ctx, t.Row.Lo, t.Row.Hi, t.Col.Lo, t.Col.Hi, buf); err != nil {
			return wrap("accumulate", "out", t.Row, t.Col, err)
		}
		accumulates++
		inner++
	}

	report.finish(idx, reads, accumulates, bytesRead)
	return nil
}

// wrap turns storage failures into *matrix.IOError. Context errors pass
// through unchanged.
func wrap(op, operand string, rows, cols matrix.Range, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return matrix.NewIOError(op, operand, rows, cols, err)
}
