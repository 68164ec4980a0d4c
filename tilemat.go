package tilemat

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/tilemat/blobstore"
	"github.com/hupe1980/tilemat/chunkstore"
	"github.com/hupe1980/tilemat/engine"
	"github.com/hupe1980/tilemat/matrix"
)

const (
	// PointerName is the blob, relative to an output name, that holds the
	// name of the published array.
	PointerName = "CURRENT"

	stagingSep = ".staging-"
)

// Dot computes a · b into a newly allocated, zero-initialized output of the
// promoted element type.
func Dot(ctx context.Context, a, b matrix.Array, opts ...Option) (matrix.Array, error) {
	return dot(ctx, a, b, nil, applyOptions(opts))
}

// DotInto computes out += a · b. out must be m x n and able to hold the
// promoted element type.
func DotInto(ctx context.Context, a, b, out matrix.Array, opts ...Option) error {
	if out == nil {
		return fmt.Errorf("%w: out", engine.ErrNilOperand)
	}
	_, err := dot(ctx, a, b, out, applyOptions(opts))
	return err
}

func dot(ctx context.Context, a, b, out matrix.Array, o options) (matrix.Array, error) {
	logger := o.logger
	if a != nil && b != nil {
		logger = logger.WithShape(a.Shape().Rows(), a.Shape().Cols(), b.Shape().Cols())
	}

	res, report, err := o.newEngine().MultiplyReport(ctx, a, b, out)
	if err == nil && o.syncOutput {
		if s, ok := res.(matrix.Syncer); ok {
			if serr := s.Sync(); serr != nil {
				shape := res.Shape()
				err = matrix.NewIOError("sync", "out", matrix.Range{Hi: shape.Rows()}, matrix.Range{Hi: shape.Cols()}, serr)
			}
		}
	}

	var (
		edge, tiles int
		duration    time.Duration
	)
	if report != nil {
		edge, tiles, duration = report.Grid.Edge, report.Grid.OutputTiles(), report.Duration
	}
	logger.LogMultiply(ctx, edge, tiles, duration, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// CurrentName returns the pointer blob name of a staged output.
func CurrentName(name string) string {
	return path.Join(name, PointerName)
}

// StagingName returns the array name of generation gen of a staged output.
func StagingName(name string, gen int) string {
	return name + stagingSep + strconv.Itoa(gen)
}

func checkName(name string) error {
	if name == "" || path.Clean(name) != name || strings.HasPrefix(name, "/") ||
		strings.HasPrefix(name, "../") || name == ".." || strings.Contains(name, stagingSep) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// current returns the published array of name and its generation.
func current(ctx context.Context, store blobstore.BlobStore, name string) (string, int, error) {
	data, err := blobstore.ReadAll(ctx, store, CurrentName(name))
	if errors.Is(err, blobstore.ErrNotFound) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	target := strings.TrimSpace(string(data))
	gen, err := strconv.Atoi(strings.TrimPrefix(target, name+stagingSep))
	if err != nil || gen < 0 {
		gen = 0
	}
	return target, gen, nil
}

// DotStaged computes a · b into a new chunked array in store and, once
// every tile succeeded, points <name>/CURRENT at it. Readers resolving the
// pointer with OpenCurrent see either the previous or the new product,
// never a partial one. On failure the staging array is deleted and the
// pointer is left untouched.
//
// WithAllocator has no effect here; WithChunkOptions configures the
// staging array.
func DotStaged(ctx context.Context, store blobstore.BlobStore, name string, a, b matrix.Array, opts ...Option) (*chunkstore.Array, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	logger := o.logger.WithName(name)
	o.logger = logger

	prev, gen, err := current(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("tilemat: resolve %s: %w", CurrentName(name), err)
	}

	var staging *chunkstore.Array
	alloc := matrix.AllocatorFunc(func(ctx context.Context, rows, cols int, dtype matrix.DType) (matrix.Array, error) {
		for {
			gen++
			arr, err := chunkstore.Create(ctx, store, StagingName(name, gen), rows, cols, dtype, o.chunk...)
			if errors.Is(err, chunkstore.ErrExists) {
				continue
			}
			if err != nil {
				return nil, err
			}
			staging = arr
			return arr, nil
		}
	})
	o.engine = append(o.engine, engine.WithAllocator(alloc))

	cleanup := func() {
		if staging == nil {
			return
		}
		if err := staging.Delete(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "staging cleanup failed", "staging", staging.Name(), "error", err)
		}
	}

	if _, err := dot(ctx, a, b, nil, o); err != nil {
		cleanup()
		return nil, err
	}

	if err := store.Put(ctx, CurrentName(name), []byte(staging.Name())); err != nil {
		err = &ErrPublish{Name: name, Staging: staging.Name(), cause: err}
		logger.LogPublish(ctx, staging.Name(), err)
		cleanup()
		return nil, err
	}
	logger.LogPublish(ctx, staging.Name(), nil)

	if prev != "" && prev != staging.Name() && !o.keepPrev {
		if err := chunkstore.Delete(ctx, store, prev); err != nil {
			logger.WarnContext(ctx, "previous output not removed", "previous", prev, "error", err)
		}
	}
	return staging, nil
}

// OpenCurrent opens the array most recently published by DotStaged under
// name. It returns an error matching ErrNotFound if nothing was published.
func OpenCurrent(ctx context.Context, store blobstore.BlobStore, name string, opts ...chunkstore.Option) (*chunkstore.Array, error) {
	target, _, err := current(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("tilemat: resolve %s: %w", CurrentName(name), err)
	}
	if target == "" {
		return nil, fmt.Errorf("tilemat: %s: %w", CurrentName(name), ErrNotFound)
	}
	return chunkstore.Open(ctx, store, target, opts...)
}
