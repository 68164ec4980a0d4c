package tilemat

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/tilemat/engine"
)

// MetricsObserver receives engine events. Implement it to integrate with
// monitoring systems; prommetrics provides a Prometheus implementation.
type MetricsObserver = engine.MetricsObserver

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
// Use this when metrics collection is not needed.
type NoopMetricsObserver = engine.NoopMetricsObserver

// BasicMetricsObserver provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsObserver struct {
	MultiplyCount      atomic.Int64
	MultiplyErrors     atomic.Int64
	MultiplyTotalNanos atomic.Int64
	TileCount          atomic.Int64
	TileErrors         atomic.Int64
	TileTotalNanos     atomic.Int64
	InnerTiles         atomic.Int64
}

// OnMultiply implements MetricsObserver.
func (b *BasicMetricsObserver) OnMultiply(_, _, _, _ int, duration time.Duration, err error) {
	b.MultiplyCount.Add(1)
	b.MultiplyTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MultiplyErrors.Add(1)
	}
}

// OnTile implements MetricsObserver.
func (b *BasicMetricsObserver) OnTile(inner int, duration time.Duration, err error) {
	b.TileCount.Add(1)
	b.TileTotalNanos.Add(duration.Nanoseconds())
	b.InnerTiles.Add(int64(inner))
	if err != nil {
		b.TileErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsObserver) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MultiplyCount:    b.MultiplyCount.Load(),
		MultiplyErrors:   b.MultiplyErrors.Load(),
		MultiplyAvgNanos: avg(b.MultiplyTotalNanos.Load(), b.MultiplyCount.Load()),
		TileCount:        b.TileCount.Load(),
		TileErrors:       b.TileErrors.Load(),
		TileAvgNanos:     avg(b.TileTotalNanos.Load(), b.TileCount.Load()),
		InnerTiles:       b.InnerTiles.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsObserver state.
type BasicMetricsStats struct {
	MultiplyCount    int64
	MultiplyErrors   int64
	MultiplyAvgNanos int64
	TileCount        int64
	TileErrors       int64
	TileAvgNanos     int64
	InnerTiles       int64
}
