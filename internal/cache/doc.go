// Package cache provides byte-bounded LRU caches for blob blocks and
// decoded matrix chunks.
//
// LRUBlockCache is a single-mutex LRU; ShardedLRUBlockCache spreads keys
// over independent shards for parallel tile workers. Both can charge their
// contents against a resource.Controller memory limit.
package cache
