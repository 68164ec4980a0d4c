// Package tilemat multiplies matrices that do not fit in memory.
//
// Operands and results are range-addressable arrays (matrix.Array) kept in
// memory, in single-file disk matrices (filestore) or as chunked arrays on
// any blob store (chunkstore over local disk, MinIO or S3). The product is
// computed tile by tile so that only a few square tiles are resident at a
// time; the tile edge derives from a buffer budget.
//
// # Quick Start
//
//	ctx := context.Background()
//	a, _ := filestore.Open("a.tmat")
//	b, _ := filestore.Open("b.tmat")
//
//	out, _ := tilemat.Dot(ctx, a, b,
//	    tilemat.WithAllocator(filestore.NewAllocator("./out", "dot")),
//	    tilemat.WithWorkers(4),
//	)
//
// DotInto accumulates into an existing output of shape m x n:
//
//	err := tilemat.DotInto(ctx, a, b, out)   // out += a · b
//
// # Staged Output
//
// DotStaged writes the product to a fresh chunked array and publishes it
// under <name>/CURRENT only after every tile succeeded:
//
//	store := blobstore.NewLocalStore("./data")
//	_, _ = tilemat.DotStaged(ctx, store, "result", a, b)
//	res, _ := tilemat.OpenCurrent(ctx, store, "result")
//
// On S3 the pointer is committed through DynamoDB (s3.DDBCommitStore), so
// concurrent publishers cannot overwrite each other silently.
//
// # Tile Size
//
// The tile edge is floor(sqrt(buffer / element size)) rounded down to a
// power of two and multiplied by the scale factor (default 20). The default
// buffer is 1 MiB, i.e. 5120 for float64 outputs.
//
// # Key Features
//
//   - All integer and float element types with NumPy-style promotion
//   - Parallel output tiles with shared memory, worker and IO budgets
//   - zstd/lz4 compressed chunks with a decoded chunk cache
//   - Structured logging (log/slog) and Prometheus metrics
package tilemat
