// Package mmap provides memory-mapped file access for matrix files.
//
// # Usage
//
//	m, err := mmap.OpenMode("a.tmat", mmap.ReadWrite)
//	if err != nil { ... }
//	defer m.Close()
//
//	// View past the file header
//	payload, _ := m.Region(headerSize, m.Size()-headerSize)
//
//	// Tiles are read row by row
//	m.Advise(mmap.AccessRandom)
//
//	// Flush accumulated tiles
//	m.Sync()
//
// Only Unix platforms are supported (mmap(2), madvise(2), msync(2)).
//
// # Thread Safety
//
// Close is idempotent and protected by atomic operations. Concurrent writers
// must touch disjoint byte ranges; callers must ensure no goroutines access
// Bytes() after Close() returns.
package mmap
