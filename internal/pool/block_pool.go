// Package pool provides object pools for allocation-free tile steps.
// Uses sync.Pool for automatic memory reuse across output tiles.
package pool

import (
	"sync"

	"github.com/hupe1980/tilemat/matrix"
)

// MaxPooledElements bounds the buffers kept for reuse. Larger buffers are
// left to the garbage collector.
//
// It covers a full tile at the default budget for outputs of 4 bytes or
// wider (edge 10240 for float32, 5120 for float64). The larger default
// edges of 1- and 2-byte outputs are not pooled.
const MaxPooledElements = 1 << 27

// blockPool is the global pool of accumulation buffers.
var blockPool = sync.Pool{
	New: func() any {
		return &matrix.Block{}
	},
}

// Get retrieves an empty block from the pool. Its backing slice may have
// spare capacity.
func Get() *matrix.Block {
	blk := blockPool.Get().(*matrix.Block)
	blk.Rows, blk.Cols = 0, 0
	blk.Data = blk.Data[:0]
	return blk
}

// Put returns a block to the pool for reuse.
func Put(blk *matrix.Block) {
	if blk == nil || !retained(cap(blk.Data)) {
		return
	}
	blockPool.Put(blk)
}

func retained(capacity int) bool { return capacity <= MaxPooledElements }
