// Package hash provides the CRC32-Castagnoli checksums used by matrix file
// headers and S3 uploads. Go's crc32 package uses hardware instructions
// (SSE4.2, ARM CRC) when available.
package hash
