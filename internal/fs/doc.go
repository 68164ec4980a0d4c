// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that injects open, read, write, sync and close
//     failures for paths matching a pattern
//
// Matrix files and local blob stores create and write their files through a
// [FileSystem], so tests can make a single chunk or header write fail:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("c.0.1", fs.Fault{FailAfterBytes: 0})
//
// Filesystem calls take no context.Context; local syscalls are not
// interruptible. Slow backends live behind blobstore, which does.
package fs
