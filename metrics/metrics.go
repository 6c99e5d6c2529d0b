// Package metrics exposes valuation counters and solver histograms to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fixedincome"

// Metrics holds the collectors registered for one engine.
type Metrics struct {
	valuations       *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	solverIterations *prometheus.HistogramVec
	duration         prometheus.Histogram
	batchItems       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		valuations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuations_total",
			Help:      "Valuations by outcome (ok or error kind).",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Bond resolutions by source of truth.",
		}, []string{"source"}),
		solverIterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "yield_solver_iterations",
			Help:      "Iterations used by the yield solver.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100, 250},
		}, []string{"method"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_duration_seconds",
			Help:      "Wall time of a single valuation.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Portfolio batch items by status.",
		}, []string{"status"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.valuations, m.resolutions, m.solverIterations, m.duration, m.batchItems} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics.New: %w", err)
		}
	}
	return m, nil
}

// ObserveValuation counts one valuation and its wall time. outcome is "ok" or
// the error kind.
func (m *Metrics) ObserveValuation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.valuations.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveSolver(method string, iterations int) {
	if m == nil {
		return
	}
	m.solverIterations.WithLabelValues(method).Observe(float64(iterations))
}

// ObserveBatchItem counts one batch item as "ok" or "failed".
func (m *Metrics) ObserveBatchItem(status string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(status).Inc()
}

// WriteTextfile dumps everything gathered by g in the text exposition format,
// for pickup by a node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics.WriteTextfile: %w", err)
	}
	return nil
}
