package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/tilemat"
	"github.com/hupe1980/tilemat/blobstore"
	miniostore "github.com/hupe1980/tilemat/blobstore/minio"
	s3store "github.com/hupe1980/tilemat/blobstore/s3"
	"github.com/hupe1980/tilemat/chunkstore"
	"github.com/hupe1980/tilemat/filestore"
	"github.com/hupe1980/tilemat/internal/cache"
	"github.com/hupe1980/tilemat/internal/compress"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/resource"
)

// resultName is the staged output name used by blob backends.
const resultName = "c"

// backend stores the operands and the product of one run.
type backend interface {
	load(ctx context.Context, name string, src *matrix.Dense) (matrix.Array, error)
	dot(ctx context.Context, a, b matrix.Array, opts ...tilemat.Option) (matrix.Array, error)
	close(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg config, rc *resource.Controller) (backend, error) {
	switch cfg.backend {
	case "mem":
		return memBackend{}, nil
	case "file":
		dir, cleanup, err := workDir(cfg)
		if err != nil {
			return nil, err
		}
		return &fileBackend{
			dir:     dir,
			cleanup: cleanup,
			rc:      rc,
			alloc:   filestore.NewAllocator(dir, "c", filestore.WithResourceController(rc)),
		}, nil
	case "chunk":
		dir, cleanup, err := workDir(cfg)
		if err != nil {
			return nil, err
		}
		be, err := newBlobBackend(cfg, blobstore.NewLocalStore(dir), rc)
		if err != nil {
			return nil, err
		}
		be.cleanup = cleanup
		return be, nil
	case "s3":
		store, err := openS3(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return newBlobBackend(cfg, withCache(cfg, store, rc), rc)
	case "minio":
		store, err := openMinio(cfg)
		if err != nil {
			return nil, err
		}
		return newBlobBackend(cfg, withCache(cfg, store, rc), rc)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

// workDir returns the configured directory or a fresh temporary one. The
// cleanup func is nil unless the directory should be removed afterwards.
func workDir(cfg config) (string, func() error, error) {
	if cfg.dir != "" {
		if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
			return "", nil, err
		}
		return cfg.dir, nil, nil
	}
	dir, err := os.MkdirTemp("", "tilebench-")
	if err != nil {
		return "", nil, err
	}
	if cfg.keep {
		return dir, nil, nil
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

func openS3(ctx context.Context, cfg config) (blobstore.BlobStore, error) {
	if cfg.bucket == "" {
		return nil, errors.New("-bucket is required for the s3 backend")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	st := s3store.NewStore(awss3.NewFromConfig(awsCfg), cfg.bucket, cfg.prefix)
	if cfg.ddbTable == "" {
		return st, nil
	}
	baseURI := "s3://" + path.Join(cfg.bucket, cfg.prefix)
	return s3store.NewDDBCommitStore(st, dynamodb.NewFromConfig(awsCfg), cfg.ddbTable, baseURI), nil
}

func openMinio(cfg config) (blobstore.BlobStore, error) {
	if cfg.bucket == "" {
		return nil, errors.New("-bucket is required for the minio backend")
	}
	client, err := minio.New(cfg.minioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.minioAccessKey, cfg.minioSecretKey, ""),
		Secure: cfg.minioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return miniostore.NewStore(client, cfg.bucket, cfg.prefix), nil
}

func withCache(cfg config, store blobstore.BlobStore, rc *resource.Controller) blobstore.BlobStore {
	if cfg.cacheMB <= 0 {
		return store
	}
	return blobstore.NewCachingStore(store, cache.NewShardedLRUBlockCache(cfg.cacheMB<<20, rc), 0)
}

type memBackend struct{}

func (memBackend) load(_ context.Context, _ string, src *matrix.Dense) (matrix.Array, error) {
	return src, nil
}

func (memBackend) dot(ctx context.Context, a, b matrix.Array, opts ...tilemat.Option) (matrix.Array, error) {
	return tilemat.Dot(ctx, a, b, opts...)
}

func (memBackend) close(context.Context) error { return nil }

type fileBackend struct {
	dir     string
	cleanup func() error
	rc      *resource.Controller
	alloc   *filestore.Allocator
	files   []*filestore.File
}

func (f *fileBackend) load(ctx context.Context, name string, src *matrix.Dense) (matrix.Array, error) {
	p := filepath.Join(f.dir, name+".tmat")
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	file, err := filestore.Create(p, src.Shape().Rows(), src.Shape().Cols(), src.DType(), filestore.WithResourceController(f.rc))
	if err != nil {
		return nil, err
	}
	f.files = append(f.files, file)
	if err := matrix.Copy(ctx, file, src, 256); err != nil {
		return nil, err
	}
	return file, file.Sync()
}

func (f *fileBackend) dot(ctx context.Context, a, b matrix.Array, opts ...tilemat.Option) (matrix.Array, error) {
	return tilemat.Dot(ctx, a, b, append(opts, tilemat.WithAllocator(f.alloc))...)
}

func (f *fileBackend) close(context.Context) error {
	errs := []error{f.alloc.Close()}
	for _, file := range f.files {
		errs = append(errs, file.Close())
	}
	if f.cleanup != nil {
		errs = append(errs, f.cleanup())
	}
	return errors.Join(errs...)
}

type blobBackend struct {
	store     blobstore.BlobStore
	chunkOpts []chunkstore.Option
	bandRows  int
	keep      bool
	cleanup   func() error
	arrays    []*chunkstore.Array
}

func newBlobBackend(cfg config, store blobstore.BlobStore, rc *resource.Controller) (*blobBackend, error) {
	filter, err := compress.ParseFilter(cfg.filter)
	if err != nil {
		return nil, err
	}
	return &blobBackend{
		store: store,
		chunkOpts: []chunkstore.Option{
			chunkstore.WithChunkShape(cfg.chunkRows, cfg.chunkCols),
			chunkstore.WithFilter(filter),
			chunkstore.WithResourceController(rc),
		},
		bandRows: max(cfg.chunkRows, 1),
		keep:     cfg.keep,
	}, nil
}

func (bb *blobBackend) load(ctx context.Context, name string, src *matrix.Dense) (matrix.Array, error) {
	if err := chunkstore.Delete(ctx, bb.store, name); err != nil {
		return nil, err
	}
	arr, err := chunkstore.Create(ctx, bb.store, name, src.Shape().Rows(), src.Shape().Cols(), src.DType(), bb.chunkOpts...)
	if err != nil {
		return nil, err
	}
	bb.arrays = append(bb.arrays, arr)
	if err := matrix.Copy(ctx, arr, src, bb.bandRows); err != nil {
		return nil, err
	}
	return arr, nil
}

func (bb *blobBackend) dot(ctx context.Context, a, b matrix.Array, opts ...tilemat.Option) (matrix.Array, error) {
	opts = append(opts, tilemat.WithChunkOptions(bb.chunkOpts...))
	if _, err := tilemat.DotStaged(ctx, bb.store, resultName, a, b, opts...); err != nil {
		return nil, err
	}
	cur, err := tilemat.OpenCurrent(ctx, bb.store, resultName, bb.chunkOpts...)
	if err != nil {
		return nil, err
	}
	bb.arrays = append(bb.arrays, cur)
	return cur, nil
}

func (bb *blobBackend) close(ctx context.Context) error {
	var errs []error
	if !bb.keep {
		for _, arr := range bb.arrays {
			errs = append(errs, arr.Delete(ctx))
		}
		errs = append(errs, bb.store.Delete(ctx, tilemat.CurrentName(resultName)))
	}
	if bb.cleanup != nil {
		errs = append(errs, bb.cleanup())
	}
	return errors.Join(errs...)
}
