package engine

import "time"

// MetricsObserver defines the interface for observing engine events.
type MetricsObserver interface {
	// OnMultiply is called when a multiplication completes or fails.
	OnMultiply(m, k, n, edge int, duration time.Duration, err error)

	// OnTile is called when an output tile completes or fails. inner is
	// the number of reduction tiles it took.
	OnTile(inner int, duration time.Duration, err error)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnMultiply(int, int, int, int, time.Duration, error) {}
func (NoopMetricsObserver) OnTile(int, time.Duration, error)                    {}
