package engine

import (
	"log/slog"

	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/plan"
	"github.com/hupe1980/tilemat/resource"
)

// Option configures an Engine.
type Option func(*Engine)

// WithBufferSize sets the memory budget the tile edge is derived from.
// Non-positive values select plan.DefaultBufferBytes.
func WithBufferSize(bytes int64) Option {
	return func(e *Engine) {
		if bytes <= 0 {
			bytes = plan.DefaultBufferBytes
		}
		e.bufferBytes = bytes
	}
}

// WithScaleFactor sets the multiplier applied to the power-of-two edge.
// Non-positive values select plan.DefaultScaleFactor.
func WithScaleFactor(scale int) Option {
	return func(e *Engine) {
		if scale <= 0 {
			scale = plan.DefaultScaleFactor
		}
		e.scale = scale
	}
}

// WithTileEdge fixes the tile edge, bypassing the buffer-derived edge.
// Zero restores the derived edge.
func WithTileEdge(edge int) Option {
	return func(e *Engine) {
		e.tileEdge = max(edge, 0)
	}
}

// WithWorkers sets how many output tiles are processed in parallel.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = max(n, 1)
	}
}

// WithAllocator sets the allocator used when Multiply is called without an
// output array. The default allocates in memory.
func WithAllocator(alloc matrix.Allocator) Option {
	return func(e *Engine) {
		if alloc == nil {
			alloc = matrix.DenseAllocator{}
		}
		e.allocator = alloc
	}
}

// WithLogger sets the logger. Plans are logged at Debug, failures at Error.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger == nil {
			logger = discardLogger()
		}
		e.logger = logger
	}
}

// WithMetricsObserver sets the metrics observer.
func WithMetricsObserver(m MetricsObserver) Option {
	return func(e *Engine) {
		if m == nil {
			m = NoopMetricsObserver{}
		}
		e.metrics = m
	}
}

// WithResourceController shares worker slots, working memory and IO
// budget with other users of rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Engine) { e.rc = rc }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
