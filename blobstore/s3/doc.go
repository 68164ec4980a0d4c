// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "matrices/")
//
// Wrap the store in a DDBCommitStore to publish staged outputs atomically:
//
//	commits := s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg),
//	    "tilemat-commits", "s3://my-bucket/matrices")
//
// # Features
//
//   - Range reads for tile-sized partial fetches
//   - Streaming multipart uploads with CRC32C checksums
//   - Automatic pagination for listing
//   - Conditional pointer commits through DynamoDB
package s3
