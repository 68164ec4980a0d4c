// Package resource implements the Controller that governs memory, worker
// slots and IO bandwidth shared by concurrent multiplications.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                         Controller                          │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Worker Slots   │  IO Rate Limiter        │
//	│  (semaphore)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireWorker  │  AcquireIO              │
//	│  TryAcquire     │  TryAcquire     │  RateLimitedWriter      │
//	│  ReleaseMemory  │  ReleaseWorker  │  RateLimitedReader      │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory
//
// The engine reserves the working set of one tile step (two operand tiles
// and an accumulation buffer) per worker before it reads anything. A
// reservation larger than the limit fails immediately with
// ErrMemoryLimitExceeded; smaller ones wait for other multiplications to
// release memory:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30,
//	})
//
//	if err := rc.AcquireMemory(ctx, need); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(need)
//
// # IO Rate Limiting
//
// Storage backends charge every tile read and write against the token
// bucket:
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	writer := resource.NewRateLimitedWriter(ctx, file, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
