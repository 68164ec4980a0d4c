package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/hupe1980/tilemat/internal/conv"
	"github.com/hupe1980/tilemat/internal/fs"
	"github.com/hupe1980/tilemat/internal/mmap"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
)

// ErrClosed is returned by operations on a closed File.
var ErrClosed = errors.New("filestore: file is closed")

type options struct {
	fs       fs.FileSystem
	rc       *resource.Controller
	readOnly bool
}

// Option configures Create, Open and NewAllocator.
type Option func(*options)

// WithFileSystem sets the file system used to create files.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithResourceController charges tile reads and writes against rc's IO budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithReadOnly opens the file read-only; Accumulate then fails.
func WithReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

func applyOptions(opts []Option) options {
	o := options{fs: fs.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// File is a matrix stored in one memory-mapped file. It implements
// matrix.Array and is safe for concurrent use.
type File struct {
	path string
	hdr  header
	rc   *resource.Controller

	mu      sync.RWMutex // guards m against Close
	m       *mmap.Mapping
	payload []byte
}

var _ matrix.Array = (*File)(nil)

// Create creates a zero-filled rows x cols file at path. It fails if the
// file already exists.
func Create(path string, rows, cols int, dtype matrix.DType, opts ...Option) (*File, error) {
	if rows < 0 || cols < 0 {
		return nil, &matrix.ShapeMismatchError{Reason: "negative dimension", Expected: matrix.Shape{0, 0}, Actual: matrix.Shape{rows, cols}}
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("filestore: invalid dtype %v", dtype)
	}
	if _, err := conv.MulInt64(int64(rows), int64(cols), int64(dtype.Size())); err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}

	o := applyOptions(opts)
	hdr := header{dtype: dtype, rows: rows, cols: cols}

	w, err := o.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", path, err)
	}
	if err := writeHeader(o.fs, w, path, hdr); err != nil {
		_ = o.fs.Remove(path)
		return nil, err
	}

	f, err := open(path, o)
	if err != nil {
		_ = o.fs.Remove(path)
		return nil, err
	}
	return f, nil
}

func writeHeader(fsys fs.FileSystem, w fs.File, path string, hdr header) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("filestore: close %s: %w", path, cerr)
		}
	}()

	if _, err := w.Write(hdr.encode()); err != nil {
		return fmt.Errorf("filestore: write header %s: %w", path, err)
	}
	if err := fsys.Truncate(path, headerSize+hdr.payloadSize()); err != nil {
		return fmt.Errorf("filestore: size %s: %w", path, err)
	}
	if err := w.Sync(); err != nil {
		return fmt.Errorf("filestore: sync %s: %w", path, err)
	}
	return nil
}

// Open maps an existing matrix file.
func Open(path string, opts ...Option) (*File, error) {
	return open(path, applyOptions(opts))
}

func open(path string, o options) (*File, error) {
	mode := mmap.ReadWrite
	if o.readOnly {
		mode = mmap.ReadOnly
	}
	m, err := mmap.OpenMode(path, mode)
	if err != nil {
		return nil, fmt.Errorf("filestore: map %s: %w", path, err)
	}

	hdr, err := decodeHeader(m.Bytes())
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	region, err := m.Region(headerSize, int(hdr.payloadSize()))
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	_ = region.Advise(mmap.AccessRandom)

	return &File{
		path:    path,
		hdr:     hdr,
		rc:      o.rc,
		m:       m,
		payload: region.Bytes(),
	}, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Shape implements matrix.Array.
func (f *File) Shape() matrix.Shape { return matrix.Shape{f.hdr.rows, f.hdr.cols} }

// DType implements matrix.Array.
func (f *File) DType() matrix.DType { return f.hdr.dtype }

func (f *File) rowSpan(r, colLo, colHi int) []byte {
	size := f.hdr.dtype.Size()
	start := (r*f.hdr.cols + colLo) * size
	return f.payload[start : start+(colHi-colLo)*size]
}

// Read implements matrix.Array.
func (f *File) Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*matrix.Block, error) {
	if err := matrix.CheckBounds(f.Shape(), rowLo, rowHi, colLo, colHi); err != nil {
		return nil, err
	}
	blk := matrix.NewBlock(rowHi-rowLo, colHi-colLo)
	if err := f.rc.AcquireIO(ctx, len(blk.Data)*f.hdr.dtype.Size()); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.m == nil {
		return nil, ErrClosed
	}
	for r := rowLo; r < rowHi; r++ {
		matrix.Decode(blk.Row(r-rowLo), f.rowSpan(r, colLo, colHi), f.hdr.dtype)
	}
	return blk, nil
}

// Accumulate implements matrix.Array.
func (f *File) Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *matrix.Block) error {
	if err := matrix.CheckAccumulate(f.Shape(), rowLo, rowHi, colLo, colHi, blk); err != nil {
		return err
	}
	if err := f.rc.AcquireIO(ctx, len(blk.Data)*f.hdr.dtype.Size()); err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.m == nil {
		return ErrClosed
	}
	if !f.m.Writable() {
		return fmt.Errorf("filestore: %s: %w", f.path, mmap.ErrReadOnly)
	}
	for r := 0; r < blk.Rows; r++ {
		matrix.AddEncoded(f.rowSpan(rowLo+r, colLo, colHi), blk.Row(r), f.hdr.dtype)
	}
	return nil
}

// Sync flushes accumulated values to disk.
func (f *File) Sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.m == nil {
		return ErrClosed
	}
	return f.m.Sync()
}

// Close syncs and unmaps the file. It is idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.m == nil {
		return nil
	}
	err := f.m.Sync()
	err = errors.Join(err, f.m.Close())
	f.m = nil
	f.payload = nil
	return err
}
