package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/tilemat/matrix"
)

// Allocator creates output files in a directory. It owns the files it
// creates until Close.
type Allocator struct {
	dir    string
	prefix string
	opts   []Option

	mu    sync.Mutex
	seq   int
	files []*File
}

var _ matrix.Allocator = (*Allocator)(nil)

// NewAllocator returns an Allocator creating files named
// "<prefix>-<n>.tmat" in dir.
func NewAllocator(dir, prefix string, opts ...Option) *Allocator {
	if prefix == "" {
		prefix = "out"
	}
	return &Allocator{dir: dir, prefix: prefix, opts: opts}
}

// Allocate implements matrix.Allocator.
func (a *Allocator) Allocate(ctx context.Context, rows, cols int, dtype matrix.DType) (matrix.Array, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := applyOptions(a.opts)
	if err := o.fs.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir %s: %w", a.dir, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		a.seq++
		path := filepath.Join(a.dir, fmt.Sprintf("%s-%d.tmat", a.prefix, a.seq))
		f, err := Create(path, rows, cols, dtype, a.opts...)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		a.files = append(a.files, f)
		return f, nil
	}
}

// Files returns the files created so far.
func (a *Allocator) Files() []*File {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*File(nil), a.files...)
}

// Close closes every file created by the allocator.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, f := range a.files {
		errs = append(errs, f.Close())
	}
	a.files = nil
	return errors.Join(errs...)
}
