// Package filestore stores a matrix in a single memory-mapped file.
//
// # File layout
//
//	┌──────────────────────────── header (64 bytes) ───────────────────────────┐
//	│ "TMAT" │ version u16 │ dtype u8 │ pad │ rows u64 │ cols u64 │ … │ CRC32C │
//	├──────────────────────────────────────────────────────────────────────────┤
//	│ payload: rows*cols little-endian elements, row-major                     │
//	└──────────────────────────────────────────────────────────────────────────┘
//
// The payload of a new file is created sparse and therefore reads as zeros.
// Read copies rows out of the mapping; Accumulate adds into it in place.
// Dirty pages reach the disk on Sync or Close.
//
// Files are created through an internal/fs FileSystem so tests can inject
// faults, and every tile read or write is charged against the IO budget of
// an optional resource.Controller.
package filestore
