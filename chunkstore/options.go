package chunkstore

import (
	"github.com/hupe1980/tilemat/codec"
	"github.com/hupe1980/tilemat/internal/cache"
	"github.com/hupe1980/tilemat/internal/compress"
	"github.com/hupe1980/tilemat/resource"
)

const (
	// DefaultChunkEdge is the default chunk edge in elements.
	DefaultChunkEdge = 256
	// DefaultCacheBytes is the capacity of the decoded chunk cache.
	DefaultCacheBytes = 64 << 20
	// DefaultReadConcurrency is the number of chunks one Read fetches in parallel.
	DefaultReadConcurrency = 4
)

type options struct {
	chunkRows       int
	chunkCols       int
	filter          compress.Filter
	cache           cache.BlockCache
	rc              *resource.Controller
	codec           codec.Codec
	readConcurrency int
}

// Option configures Create, Open and NewAllocator.
type Option func(*options)

// WithChunkShape sets the chunk shape of new arrays. Open ignores it.
func WithChunkShape(rows, cols int) Option {
	return func(o *options) {
		o.chunkRows = rows
		o.chunkCols = cols
	}
}

// WithFilter sets the compression filter of new arrays. Open ignores it.
func WithFilter(f compress.Filter) Option {
	return func(o *options) { o.filter = f }
}

// WithCache sets the decoded chunk cache. Arrays may share one cache.
func WithCache(c cache.BlockCache) Option {
	return func(o *options) { o.cache = c }
}

// WithResourceController charges chunk IO and cache memory against rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithCodec sets the codec of the attribute document.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithReadConcurrency sets how many chunks one Read fetches in parallel.
func WithReadConcurrency(n int) Option {
	return func(o *options) { o.readConcurrency = n }
}

func applyOptions(opts []Option) options {
	o := options{
		chunkRows:       DefaultChunkEdge,
		chunkCols:       DefaultChunkEdge,
		filter:          compress.Zstd,
		codec:           codec.Default,
		readConcurrency: DefaultReadConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = cache.NewShardedLRUBlockCache(DefaultCacheBytes, o.rc)
	}
	if o.readConcurrency < 1 {
		o.readConcurrency = 1
	}
	return o
}
