// Package blobstore provides the storage abstraction behind chunked
// matrices: chunks, attribute documents and output pointers are named
// blobs.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map
//   - LocalStore: local filesystem, mmap reads, atomic rename writes
//   - CachingStore: block cache in front of any store
//   - s3.Store, s3.DDBCommitStore: Amazon S3 (optionally DynamoDB commits)
//   - minio.Store: MinIO and other S3-compatible servers
//
// All methods take a context.Context; remote backends honor cancellation.
package blobstore
