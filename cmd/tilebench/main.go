// Command tilebench multiplies linspace operands out of core and checks the
// result against the in-memory product.
//
// Usage:
//
//	tilebench -l 1000 -m 100 -n 1000 -backend chunk -dir /tmp/tilebench
//	tilebench -backend s3 -bucket my-bucket -prefix bench/ -ddb-table tilemat-commits
//	tilebench -backend minio -minio-endpoint localhost:9000 -bucket test
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/tilemat"
	"github.com/hupe1980/tilemat/matrix"
	"github.com/hupe1980/tilemat/prommetrics"
	"github.com/hupe1980/tilemat/resource"
	"github.com/hupe1980/tilemat/testutil"
)

type config struct {
	l, m, n int
	dtype   string
	backend string
	dir     string
	keep    bool

	buffer  int64
	scale   int
	edge    int
	workers int

	memLimit int64
	ioLimit  int64

	filter    string
	chunkRows int
	chunkCols int
	cacheMB   int64

	bucket         string
	prefix         string
	ddbTable       string
	minioEndpoint  string
	minioAccessKey string
	minioSecretKey string
	minioSecure    bool

	tolerance   float64
	metricsAddr string
	logLevel    string
	jsonLogs    bool
}

func parseFlags(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("tilebench", flag.ContinueOnError)

	fs.IntVar(&cfg.l, "l", 1000, "rows of a")
	fs.IntVar(&cfg.m, "m", 100, "columns of a and rows of b")
	fs.IntVar(&cfg.n, "n", 1000, "columns of b")
	fs.StringVar(&cfg.dtype, "dtype", "float64", "operand element type")
	fs.StringVar(&cfg.backend, "backend", "file", "storage backend: mem, file, chunk, s3, minio")
	fs.StringVar(&cfg.dir, "dir", "", "working directory for file and chunk backends (default: temp dir)")
	fs.BoolVar(&cfg.keep, "keep", false, "keep operands and result after the run")

	fs.Int64Var(&cfg.buffer, "buffer", 1<<20, "buffer budget in bytes the tile edge derives from")
	fs.IntVar(&cfg.scale, "scale", 20, "tile edge scale factor")
	fs.IntVar(&cfg.edge, "edge", 0, "fixed tile edge (0: derive from -buffer)")
	fs.IntVar(&cfg.workers, "workers", 1, "output tiles computed in parallel")

	fs.Int64Var(&cfg.memLimit, "mem-limit", 0, "tile working memory limit in bytes (0: unlimited)")
	fs.Int64Var(&cfg.ioLimit, "io-limit", 0, "tile IO limit in bytes per second (0: unlimited)")

	fs.StringVar(&cfg.filter, "filter", "zstd", "chunk filter: none, lz4, zstd")
	fs.IntVar(&cfg.chunkRows, "chunk-rows", 512, "chunk rows")
	fs.IntVar(&cfg.chunkCols, "chunk-cols", 512, "chunk columns")
	fs.Int64Var(&cfg.cacheMB, "cache-mb", 64, "block cache for remote stores in MiB (0: disabled)")

	fs.StringVar(&cfg.bucket, "bucket", "", "bucket for s3 and minio backends")
	fs.StringVar(&cfg.prefix, "prefix", "tilebench", "key prefix for s3 and minio backends")
	fs.StringVar(&cfg.ddbTable, "ddb-table", "", "DynamoDB table for atomic CURRENT commits on s3")
	fs.StringVar(&cfg.minioEndpoint, "minio-endpoint", "localhost:9000", "MinIO endpoint")
	fs.StringVar(&cfg.minioAccessKey, "minio-access-key", os.Getenv("MINIO_ACCESS_KEY"), "MinIO access key")
	fs.StringVar(&cfg.minioSecretKey, "minio-secret-key", os.Getenv("MINIO_SECRET_KEY"), "MinIO secret key")
	fs.BoolVar(&cfg.minioSecure, "minio-secure", false, "use TLS for MinIO")

	fs.Float64Var(&cfg.tolerance, "tol", 0, "max absolute difference (0: scale with m)")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.jsonLogs, "json", false, "log as JSON")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if cfg.l < 0 || cfg.m < 0 || cfg.n < 0 {
		return cfg, fmt.Errorf("dimensions must not be negative: %d x %d x %d", cfg.l, cfg.m, cfg.n)
	}
	if cfg.tolerance <= 0 {
		// linspace(0, 1) entries are at most 1.
		cfg.tolerance = max(testutil.Tolerance(cfg.m, 1), 1e-9)
	}
	return cfg, nil
}

func newLogger(cfg config) (*tilemat.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.logLevel)); err != nil {
		return nil, err
	}
	if cfg.jsonLogs {
		return tilemat.NewJSONLogger(level), nil
	}
	return tilemat.NewTextLogger(level), nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "tilebench:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	dtype, err := matrix.ParseDType(cfg.dtype)
	if err != nil {
		return err
	}

	var metrics tilemat.MetricsObserver = tilemat.NoopMetricsObserver{}
	if cfg.metricsAddr != "" {
		metrics = prommetrics.NewObserver(prometheus.DefaultRegisterer)
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.metricsAddr)
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.memLimit,
		MaxWorkers:         int64(max(cfg.workers, 1)),
		IOLimitBytesPerSec: cfg.ioLimit,
	})

	be, err := openBackend(ctx, cfg, rc)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := be.close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("cleanup failed", "error", cerr)
		}
	}()

	a := castTo(testutil.Linspace(cfg.l, cfg.m, 0, 1), dtype)
	b := castTo(testutil.Linspace(cfg.m, cfg.n, 0, 1), dtype)

	start := time.Now()
	want := testutil.Reference(a, b)
	refTime := time.Since(start)

	start = time.Now()
	sa, err := be.load(ctx, "a", a)
	if err != nil {
		return fmt.Errorf("load a: %w", err)
	}
	sb, err := be.load(ctx, "b", b)
	if err != nil {
		return fmt.Errorf("load b: %w", err)
	}
	loadTime := time.Since(start)

	opts := []tilemat.Option{
		tilemat.WithBufferSize(cfg.buffer),
		tilemat.WithScaleFactor(cfg.scale),
		tilemat.WithTileEdge(cfg.edge),
		tilemat.WithWorkers(cfg.workers),
		tilemat.WithResourceController(rc),
		tilemat.WithLogger(logger),
		tilemat.WithMetricsObserver(metrics),
	}

	start = time.Now()
	out, err := be.dot(ctx, sa, sb, opts...)
	if err != nil {
		return err
	}
	dotTime := time.Since(start)

	got, err := testutil.ReadAll(ctx, out)
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}
	diff := testutil.MaxAbsDiff(want, got)

	fmt.Printf("shape:               (%d, %d) . (%d, %d) [%s, %s]\n", cfg.l, cfg.m, cfg.m, cfg.n, dtype, cfg.backend)
	fmt.Printf("time (load):         %v\n", loadTime)
	fmt.Printf("time (in-memory):    %v\n", refTime)
	fmt.Printf("time (out-of-core):  %v\n", dotTime)
	fmt.Printf("max abs difference:  %g (tolerance %g)\n", diff, cfg.tolerance)

	if diff > cfg.tolerance {
		return fmt.Errorf("result differs from reference by %g", diff)
	}
	return nil
}

func castTo(d *matrix.Dense, dtype matrix.DType) *matrix.Dense {
	out := matrix.NewDense(d.Shape().Rows(), d.Shape().Cols(), dtype)
	for i, v := range d.Data() {
		out.Data()[i] = matrix.Cast(v, dtype)
	}
	return out
}
