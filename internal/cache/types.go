package cache

import "context"

// Key identifies a cached block: Path names the source (a blob or chunk
// name) and Offset the block within it.
type Key struct {
	Path   string
	Offset uint64
}

// BlockCache is a byte-oriented block cache.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block, replacing any previous value. The cache retains b;
	// the caller must not modify it afterwards.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}

// InvalidatePath removes every block cached for path.
func InvalidatePath(c BlockCache, path string) {
	c.Invalidate(func(key Key) bool { return key.Path == path })
}
