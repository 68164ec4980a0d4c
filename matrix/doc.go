// Package matrix defines the 2-D array model shared by the engine and the
// storage backends.
//
// # Arrays
//
// An [Array] is a range-addressable 2-D store. The engine only ever talks
// to storage through two operations:
//
//	blk, err := a.Read(ctx, rowLo, rowHi, colLo, colHi)   // materialize a block
//	err = out.Accumulate(ctx, rowLo, rowHi, colLo, colHi, blk) // out[r, c] += blk
//
// Ranges are half-open. Accumulate is a read-modify-write add, never an
// overwrite, so partial products of different reduction tiles combine in
// place without buffering a whole output band.
//
// # Element types
//
// Arrays carry a [DType]. Blocks are always float64 in memory; backends
// convert on the way in and out. Integer values round-trip exactly up to
// 2^53.
//
// # Errors
//
// The error taxonomy ([RankError], [ShapeMismatchError],
// [DTypeMismatchError], [OutOfBoundsError], [IOError]) is defined here so
// that every backend reports failures the same way. Each type matches its
// sentinel with errors.Is.
package matrix
