// Package chunkstore stores a matrix as a grid of compressed chunks in a
// blobstore.BlobStore (local disk, memory, S3 or MinIO).
//
// # Layout
//
// An array named "c" consists of
//
//	c/.attrs      attribute set (CLASS=CARRAY, shape, dtype, chunk shape, filter)
//	c/c.<i>.<j>   chunk (i, j), a compress frame of little-endian elements
//
// Chunks on the right and bottom edges are clipped to the array. A chunk
// that was never written reads as zeros, so a freshly created array costs
// one small attribute blob regardless of its shape.
//
// # Concurrency
//
// Accumulate is a read-modify-write of every chunk it touches. Chunk locks
// serialize it against other Accumulate and Read calls on the same chunk,
// so concurrent calls on disjoint (or even overlapping) rectangles never
// lose an update. Reads of multiple chunks run in parallel.
//
// Decoded chunks are kept in an LRU cache; every chunk read or written is
// charged against the IO budget of an optional resource.Controller.
package chunkstore
