package tilemat

import (
	"log/slog"

	"github.com/hupe1980/tilemat/chunkstore"
	"github.com/hupe1980/tilemat/engine"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
)

type options struct {
	engine     []engine.Option
	logger     *Logger
	metrics    MetricsObserver
	chunk      []chunkstore.Option
	keepPrev   bool
	syncOutput bool
}

// Option configures Dot, DotInto and DotStaged.
type Option func(*options)

// WithBufferSize sets the memory budget the tile edge is derived from
// (default 1 MiB).
func WithBufferSize(bytes int64) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithBufferSize(bytes))
	}
}

// WithScaleFactor sets the multiplier applied to the power-of-two edge
// (default 20).
func WithScaleFactor(scale int) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithScaleFactor(scale))
	}
}

// WithTileEdge fixes the tile edge.
func WithTileEdge(edge int) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithTileEdge(edge))
	}
}

// WithWorkers sets how many output tiles are computed in parallel.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithWorkers(n))
	}
}

// WithAllocator sets where Dot allocates its result. The default keeps the
// result in memory.
//
// Example:
//
//	out, _ := tilemat.Dot(ctx, a, b,
//	    tilemat.WithAllocator(filestore.NewAllocator("./out", "dot")))
func WithAllocator(alloc matrix.Allocator) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithAllocator(alloc))
	}
}

// WithResourceController shares memory, worker slots and IO bandwidth with
// other multiplications using rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithResourceController(rc))
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tilemat.NewJSONLogger(slog.LevelInfo)
//	out, _ := tilemat.Dot(ctx, a, b, tilemat.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsObserver configures a metrics observer.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsObserver:
//
//	metrics := &tilemat.BasicMetricsObserver{}
//	_, _ = tilemat.Dot(ctx, a, b, tilemat.WithMetricsObserver(metrics))
//	stats := metrics.GetStats()
func WithMetricsObserver(m MetricsObserver) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithChunkOptions configures the staging arrays created by DotStaged.
func WithChunkOptions(opts ...chunkstore.Option) Option {
	return func(o *options) {
		o.chunk = append(o.chunk, opts...)
	}
}

// WithKeepPrevious makes DotStaged keep the previously published array
// instead of deleting it after the pointer moved.
func WithKeepPrevious() Option {
	return func(o *options) {
		o.keepPrev = true
	}
}

// WithoutSync skips flushing outputs that implement matrix.Syncer.
func WithoutSync() Option {
	return func(o *options) {
		o.syncOutput = false
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:     NoopLogger(),
		metrics:    NoopMetricsObserver{},
		syncOutput: true,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsObserver{}
	}
	return o
}

func (o options) newEngine() *engine.Engine {
	opts := append([]engine.Option{
		engine.WithLogger(o.logger.Logger),
		engine.WithMetricsObserver(o.metrics),
	}, o.engine...)
	return engine.New(opts...)
}
