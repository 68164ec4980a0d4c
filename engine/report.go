package engine

import (
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/tilemat/plan"
)

// Report describes one multiplication.
type Report struct {
	// Grid is the tiling that was used; Grid.Edge is the tile edge.
	Grid plan.Grid
	// Workers is the number of output tiles that could run in parallel.
	Workers int
	// Finished holds the row-major indices of output tiles whose every
	// reduction tile was accumulated.
	Finished *roaring.Bitmap
	// Reads counts operand tile reads.
	Reads int64
	// Accumulates counts Accumulate calls on the output.
	Accumulates int64
	// BytesRead is the stored size of all operand tiles read.
	BytesRead int64
	// Duration is the wall time of the call.
	Duration time.Duration

	mu sync.Mutex
}

func newReport(g plan.Grid, workers int) *Report {
	return &Report{Grid: g, Workers: workers, Finished: roaring.New()}
}

func (r *Report) finish(idx int, reads, accumulates, bytesRead int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished.Add(uint32(idx))
	r.Reads += reads
	r.Accumulates += accumulates
	r.BytesRead += bytesRead
}

// Complete reports whether every output tile was finished.
func (r *Report) Complete() bool {
	return r.Finished.GetCardinality() == uint64(r.Grid.OutputTiles())
}

// Pending returns the output tiles that were not finished, in row-major
// order.
func (r *Report) Pending() []int {
	var pending []int
	for idx := range r.Grid.OutputTiles() {
		if !r.Finished.Contains(uint32(idx)) {
			pending = append(pending, idx)
		}
	}
	return pending
}
