package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/matrix"
)

// Allocator creates output arrays named "<prefix>-<n>" in a store.
type Allocator struct {
	store  blobstore.BlobStore
	prefix string
	opts   []Option

	mu     sync.Mutex
	seq    int
	arrays []*Array
}

var _ matrix.Allocator = (*Allocator)(nil)

// NewAllocator returns an Allocator for store. opts apply to every array.
func NewAllocator(store blobstore.BlobStore, prefix string, opts ...Option) *Allocator {
	if prefix == "" {
		prefix = "out"
	}
	return &Allocator{store: store, prefix: prefix, opts: opts}
}

// Allocate implements matrix.Allocator.
func (a *Allocator) Allocate(ctx context.Context, rows, cols int, dtype matrix.DType) (matrix.Array, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		a.seq++
		name := fmt.Sprintf("%s-%d", a.prefix, a.seq)
		arr, err := Create(ctx, a.store, name, rows, cols, dtype, a.opts...)
		if errors.Is(err, ErrExists) {
			continue
		}
		if err != nil {
			return nil, err
		}
		a.arrays = append(a.arrays, arr)
		return arr, nil
	}
}

// Arrays returns the arrays created so far.
func (a *Allocator) Arrays() []*Array {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Array(nil), a.arrays...)
}
