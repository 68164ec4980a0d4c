package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tilemat/attrs"
	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/codec"
	"github.com/hupe1980/tilemat/internal/cache"
	"github.com/hupe1980/tilemat/internal/compress"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
)

const (
	// Class is the CLASS attribute of chunked arrays.
	Class = "CARRAY"
	// Version is the VERSION attribute written by this package.
	Version = "1.0"

	attrsName = ".attrs"
	numLocks  = 64
)

var (
	// ErrExists is returned by Create when the array already exists.
	ErrExists = errors.New("chunkstore: array already exists")
	// ErrNotArray is returned by Open when the attribute set does not
	// describe a chunked array.
	ErrNotArray = errors.New("chunkstore: not a chunked array")
	// ErrCorruptChunk is returned when a chunk does not decode to its extent.
	ErrCorruptChunk = errors.New("chunkstore: corrupt chunk")
)

// Stats counts chunk traffic of one Array.
type Stats struct {
	ChunksRead    int64
	ChunksMissing int64
	ChunksWritten int64
	BytesRead     int64
	BytesWritten  int64
}

// Array is a chunked matrix. It implements matrix.Array and is safe for
// concurrent use.
type Array struct {
	store blobstore.BlobStore
	name  string

	rows, cols           int
	dtype                matrix.DType
	chunkRows, chunkCols int
	filter               compress.Filter

	attrs           *attrs.Set
	codec           codec.Codec
	cache           cache.BlockCache
	rc              *resource.Controller
	readConcurrency int

	locks [numLocks]sync.RWMutex

	chunksRead    atomic.Int64
	chunksMissing atomic.Int64
	chunksWritten atomic.Int64
	bytesRead     atomic.Int64
	bytesWritten  atomic.Int64
}

var _ matrix.Array = (*Array)(nil)

// AttrsName returns the blob name of an array's attribute set.
func AttrsName(name string) string {
	return path.Join(name, attrsName)
}

// Create creates an empty rows x cols array named name.
func Create(ctx context.Context, store blobstore.BlobStore, name string, rows, cols int, dtype matrix.DType, opts ...Option) (*Array, error) {
	if rows < 0 || cols < 0 {
		return nil, &matrix.ShapeMismatchError{Reason: "negative dimension", Expected: matrix.Shape{0, 0}, Actual: matrix.Shape{rows, cols}}
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("chunkstore: invalid dtype %v", dtype)
	}

	o := applyOptions(opts)
	if o.chunkRows < 1 || o.chunkCols < 1 {
		return nil, fmt.Errorf("chunkstore: invalid chunk shape (%d, %d)", o.chunkRows, o.chunkCols)
	}

	exists, err := blobstore.Exists(ctx, store, AttrsName(name))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}

	a := newArray(store, name, o)
	a.rows, a.cols, a.dtype = rows, cols, dtype
	// Chunks never exceed the array, except for empty axes which keep a
	// 1-element chunk edge.
	a.chunkRows = max(1, min(o.chunkRows, rows))
	a.chunkCols = max(1, min(o.chunkCols, cols))
	a.filter = o.filter
	a.attrs = attrs.New("/" + name)

	for _, kv := range []struct {
		name  string
		value any
	}{
		{"CLASS", Class},
		{"VERSION", Version},
		{"NROWS", rows},
		{"NCOLS", cols},
		{"DTYPE", dtype.String()},
		{"CHUNKROWS", a.chunkRows},
		{"CHUNKCOLS", a.chunkCols},
		{"FILTERS", a.filter.String()},
	} {
		if err := a.attrs.SetSystem(kv.name, kv.value); err != nil {
			return nil, err
		}
	}

	if err := a.SaveAttrs(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Open opens an existing array.
func Open(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*Array, error) {
	set, err := attrs.Load(ctx, store, AttrsName(name))
	if err != nil {
		return nil, fmt.Errorf("chunkstore: open %s: %w", name, err)
	}

	class, err := set.GetString("CLASS")
	if err != nil || class != Class {
		return nil, fmt.Errorf("%w: %s has CLASS %q", ErrNotArray, name, class)
	}

	a := newArray(store, name, applyOptions(opts))
	a.attrs = set

	ints := []struct {
		name string
		dst  *int
	}{
		{"NROWS", &a.rows},
		{"NCOLS", &a.cols},
		{"CHUNKROWS", &a.chunkRows},
		{"CHUNKCOLS", &a.chunkCols},
	}
	for _, f := range ints {
		if *f.dst, err = set.GetInt(f.name); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotArray, name, err)
		}
	}
	if a.rows < 0 || a.cols < 0 || a.chunkRows < 1 || a.chunkCols < 1 {
		return nil, fmt.Errorf("%w: %s: bad geometry", ErrNotArray, name)
	}

	dt, err := set.GetString("DTYPE")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotArray, name, err)
	}
	if a.dtype, err = matrix.ParseDType(dt); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotArray, name, err)
	}

	filters, err := set.GetString("FILTERS")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotArray, name, err)
	}
	if a.filter, err = compress.ParseFilter(filters); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotArray, name, err)
	}

	return a, nil
}

// Delete removes an array and all its chunks.
func Delete(ctx context.Context, store blobstore.BlobStore, name string) error {
	return blobstore.DeletePrefix(ctx, store, name+"/")
}

func newArray(store blobstore.BlobStore, name string, o options) *Array {
	return &Array{
		store:           store,
		name:            name,
		codec:           o.codec,
		cache:           o.cache,
		rc:              o.rc,
		readConcurrency: o.readConcurrency,
	}
}

// Name returns the array name within its store.
func (a *Array) Name() string { return a.name }

// Shape implements matrix.Array.
func (a *Array) Shape() matrix.Shape { return matrix.Shape{a.rows, a.cols} }

// DType implements matrix.Array.
func (a *Array) DType() matrix.DType { return a.dtype }

// ChunkShape returns the chunk shape.
func (a *Array) ChunkShape() (rows, cols int) { return a.chunkRows, a.chunkCols }

// Filter returns the compression filter of the chunks.
func (a *Array) Filter() compress.Filter { return a.filter }

// Attrs returns the attribute set. Call SaveAttrs to persist changes.
func (a *Array) Attrs() *attrs.Set { return a.attrs }

// SaveAttrs persists the attribute set.
func (a *Array) SaveAttrs(ctx context.Context) error {
	return attrs.Save(ctx, a.store, AttrsName(a.name), a.attrs, a.codec)
}

// Stats returns a snapshot of the chunk traffic counters.
func (a *Array) Stats() Stats {
	return Stats{
		ChunksRead:    a.chunksRead.Load(),
		ChunksMissing: a.chunksMissing.Load(),
		ChunksWritten: a.chunksWritten.Load(),
		BytesRead:     a.bytesRead.Load(),
		BytesWritten:  a.bytesWritten.Load(),
	}
}

// chunkRef is one chunk and the part of a request rectangle inside it.
type chunkRef struct {
	i, j         int
	rowLo, rowHi int // absolute rows of the chunk
	colLo, colHi int // absolute cols of the chunk
	r0, r1       int // overlapping absolute rows
	c0, c1       int // overlapping absolute cols
}

func (c chunkRef) rows() int { return c.rowHi - c.rowLo }
func (c chunkRef) cols() int { return c.colHi - c.colLo }

func (a *Array) chunks(rowLo, rowHi, colLo, colHi int) []chunkRef {
	if rowHi <= rowLo || colHi <= colLo {
		return nil
	}
	var refs []chunkRef
	for i := rowLo / a.chunkRows; i*a.chunkRows < rowHi; i++ {
		for j := colLo / a.chunkCols; j*a.chunkCols < colHi; j++ {
			c := chunkRef{
				i: i, j: j,
				rowLo: i * a.chunkRows, rowHi: min((i+1)*a.chunkRows, a.rows),
				colLo: j * a.chunkCols, colHi: min((j+1)*a.chunkCols, a.cols),
			}
			c.r0, c.r1 = max(rowLo, c.rowLo), min(rowHi, c.rowHi)
			c.c0, c.c1 = max(colLo, c.colLo), min(colHi, c.colHi)
			refs = append(refs, c)
		}
	}
	return refs
}

func (a *Array) chunkName(i, j int) string {
	return a.name + "/c." + strconv.Itoa(i) + "." + strconv.Itoa(j)
}

func (a *Array) lock(c chunkRef) *sync.RWMutex {
	nj := (a.cols + a.chunkCols - 1) / a.chunkCols
	return &a.locks[(c.i*nj+c.j)%numLocks]
}

// load returns the raw little-endian bytes of a chunk. The result may be
// shared with the cache and must not be modified.
func (a *Array) load(ctx context.Context, c chunkRef) ([]byte, error) {
	name := a.chunkName(c.i, c.j)
	key := cache.Key{Path: name}
	if raw, ok := a.cache.Get(ctx, key); ok {
		return raw, nil
	}

	want := c.rows() * c.cols() * a.dtype.Size()

	blob, err := a.store.Open(ctx, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		a.chunksMissing.Add(1)
		return make([]byte, want), nil
	}
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	frame, err := io.ReadAll(resource.NewRateLimitedReader(ctx, rc, a.rc))
	if err != nil {
		return nil, err
	}
	raw, err := compress.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", ErrCorruptChunk, name, len(raw), want)
	}

	a.chunksRead.Add(1)
	a.bytesRead.Add(int64(len(frame)))
	a.cache.Set(ctx, key, raw)
	return raw, nil
}

func (a *Array) writeChunk(ctx context.Context, c chunkRef, raw []byte) error {
	name := a.chunkName(c.i, c.j)
	frame, err := compress.Encode(raw, a.filter)
	if err != nil {
		return err
	}
	if err := a.rc.AcquireIO(ctx, len(frame)); err != nil {
		return err
	}
	if err := a.store.Put(ctx, name, frame); err != nil {
		cache.InvalidatePath(a.cache, name)
		return err
	}

	a.chunksWritten.Add(1)
	a.bytesWritten.Add(int64(len(frame)))
	a.cache.Set(ctx, cache.Key{Path: name}, raw)
	return nil
}

// Read implements matrix.Array.
func (a *Array) Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*matrix.Block, error) {
	if err := matrix.CheckBounds(a.Shape(), rowLo, rowHi, colLo, colHi); err != nil {
		return nil, err
	}
	blk := matrix.NewBlock(rowHi-rowLo, colHi-colLo)
	size := a.dtype.Size()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.readConcurrency)
	for _, c := range a.chunks(rowLo, rowHi, colLo, colHi) {
		g.Go(func() error {
			mu := a.lock(c)
			mu.RLock()
			defer mu.RUnlock()

			raw, err := a.load(gctx, c)
			if err != nil {
				return err
			}
			// Each chunk fills a disjoint window of blk.
			for r := c.r0; r < c.r1; r++ {
				src := raw[((r-c.rowLo)*c.cols()+(c.c0-c.colLo))*size:]
				dst := blk.Data[(r-rowLo)*blk.Cols+(c.c0-colLo) : (r-rowLo)*blk.Cols+(c.c1-colLo)]
				matrix.Decode(dst, src, a.dtype)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blk, nil
}

// Accumulate implements matrix.Array.
func (a *Array) Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *matrix.Block) error {
	if err := matrix.CheckAccumulate(a.Shape(), rowLo, rowHi, colLo, colHi, blk); err != nil {
		return err
	}
	size := a.dtype.Size()

	for _, c := range a.chunks(rowLo, rowHi, colLo, colHi) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.accumulateChunk(ctx, c, rowLo, colLo, blk, size); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) accumulateChunk(ctx context.Context, c chunkRef, rowLo, colLo int, blk *matrix.Block, size int) error {
	mu := a.lock(c)
	mu.Lock()
	defer mu.Unlock()

	cur, err := a.load(ctx, c)
	if err != nil {
		return err
	}
	raw := append([]byte(nil), cur...)

	for r := c.r0; r < c.r1; r++ {
		dst := raw[((r-c.rowLo)*c.cols()+(c.c0-c.colLo))*size:]
		src := blk.Data[(r-rowLo)*blk.Cols+(c.c0-colLo) : (r-rowLo)*blk.Cols+(c.c1-colLo)]
		matrix.AddEncoded(dst, src, a.dtype)
	}
	return a.writeChunk(ctx, c, raw)
}

// Delete removes the array from its store and drops its cached chunks.
func (a *Array) Delete(ctx context.Context) error {
	prefix := a.name + "/"
	a.cache.Invalidate(func(key cache.Key) bool {
		return strings.HasPrefix(key.Path, prefix)
	})
	return Delete(ctx, a.store, a.name)
}
