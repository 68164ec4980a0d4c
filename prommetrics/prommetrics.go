// Package prommetrics exports engine events as Prometheus metrics.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/tilemat/engine"
)

const namespace = "tilemat"

// Observer implements engine.MetricsObserver.
type Observer struct {
	multiplyLatency *prometheus.HistogramVec
	tileLatency     *prometheus.HistogramVec
	innerTiles      prometheus.Counter
	flops           prometheus.Counter
	tileEdge        prometheus.Gauge
}

var _ engine.MetricsObserver = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewObserver(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &Observer{
		multiplyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "multiply_duration_seconds",
			Help:      "Latency of whole multiplications",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"status"}),
		tileLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "output_tile_duration_seconds",
			Help:      "Latency of output tiles including all reduction steps",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		innerTiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reduction_tiles_total",
			Help:      "Total reduction tiles multiplied and accumulated",
		}),
		flops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "multiply_flops_total",
			Help:      "Floating point operations (2mkn) of successful multiplications",
		}),
		tileEdge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tile_edge",
			Help:      "Tile edge of the most recent multiplication",
		}),
	}

	reg.MustRegister(o.multiplyLatency, o.tileLatency, o.innerTiles, o.flops, o.tileEdge)
	return o
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnMultiply implements engine.MetricsObserver.
func (o *Observer) OnMultiply(m, k, n, edge int, d time.Duration, err error) {
	o.multiplyLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	o.tileEdge.Set(float64(edge))
	if err == nil {
		o.flops.Add(2 * float64(m) * float64(k) * float64(n))
	}
}

// OnTile implements engine.MetricsObserver.
func (o *Observer) OnTile(inner int, d time.Duration, err error) {
	o.tileLatency.WithLabelValues(status(err)).Observe(d.Seconds())
	o.innerTiles.Add(float64(inner))
}
