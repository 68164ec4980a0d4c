package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/tilemat/matrix"
)

// Call records one accessor call.
type Call struct {
	Op         string // "read" or "accumulate"
	Rows, Cols matrix.Range
}

// CountingArray wraps an Array and records every Read and Accumulate.
type CountingArray struct {
	matrix.Array

	reads       atomic.Int64
	accumulates atomic.Int64

	mu    sync.Mutex
	calls []Call
}

// NewCountingArray wraps a.
func NewCountingArray(a matrix.Array) *CountingArray {
	return &CountingArray{Array: a}
}

func (c *CountingArray) record(op string, rowLo, rowHi, colLo, colHi int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{
		Op:   op,
		Rows: matrix.Range{Lo: rowLo, Hi: rowHi},
		Cols: matrix.Range{Lo: colLo, Hi: colHi},
	})
}

func (c *CountingArray) Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*matrix.Block, error) {
	c.reads.Add(1)
	c.record("read", rowLo, rowHi, colLo, colHi)
	return c.Array.Read(ctx, rowLo, rowHi, colLo, colHi)
}

func (c *CountingArray) Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *matrix.Block) error {
	c.accumulates.Add(1)
	c.record("accumulate", rowLo, rowHi, colLo, colHi)
	return c.Array.Accumulate(ctx, rowLo, rowHi, colLo, colHi, blk)
}

// Reads returns the number of Read calls.
func (c *CountingArray) Reads() int64 { return c.reads.Load() }

// Accumulates returns the number of Accumulate calls.
func (c *CountingArray) Accumulates() int64 { return c.accumulates.Load() }

// Calls returns the recorded calls in order.
func (c *CountingArray) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// FailingArray wraps an Array and fails every call from the n-th on
// (1-based, counting Read and Accumulate together).
type FailingArray struct {
	matrix.Array

	failAt int64
	err    error
	calls  atomic.Int64
}

// NewFailingArray wraps a.
func NewFailingArray(a matrix.Array, failAt int, err error) *FailingArray {
	return &FailingArray{Array: a, failAt: int64(failAt), err: err}
}

func (f *FailingArray) Read(ctx context.Context, rowLo, rowHi, colLo, colHi int) (*matrix.Block, error) {
	if f.calls.Add(1) >= f.failAt {
		return nil, f.err
	}
	return f.Array.Read(ctx, rowLo, rowHi, colLo, colHi)
}

func (f *FailingArray) Accumulate(ctx context.Context, rowLo, rowHi, colLo, colHi int, blk *matrix.Block) error {
	if f.calls.Add(1) >= f.failAt {
		return f.err
	}
	return f.Array.Accumulate(ctx, rowLo, rowHi, colLo, colHi, blk)
}
