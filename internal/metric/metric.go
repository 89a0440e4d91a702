// Package metric holds the Prometheus instruments of the vmesh runtime.
package metric

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every vmesh metric.
const Namespace = "vmesh"

// Metrics contains the runtime instruments. A nil *Metrics disables
// instrumentation.
type Metrics struct {
	// Conversions counts conversions by from, to and status
	// (ok, missing, error).
	Conversions *prometheus.CounterVec

	// AlgorithmRuns counts finished runs by algorithm and status
	// (succeeded, failed).
	AlgorithmRuns *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec

	// DataLive tracks handles that have not been destroyed yet.
	DataLive prometheus.Gauge
}

// New creates the instruments and registers them on reg. A nil reg leaves
// them unregistered, which is what tests that read values directly want.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "conversions_total",
				Help:      "Total number of data conversions attempted",
			},
			[]string{"from", "to", "status"},
		),

		AlgorithmRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "algorithm",
				Name:      "runs_total",
				Help:      "Total number of algorithm runs",
			},
			[]string{"algorithm", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "algorithm",
				Name:      "run_duration_seconds",
				Help:      "Algorithm run duration in seconds, input resolution included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"algorithm"},
		),

		DataLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "data",
				Name:      "live",
				Help:      "Number of data handles alive",
			},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

// MustNew is New for process-wide setup, panicking on registration errors.
func MustNew(reg prometheus.Registerer) *Metrics {
	m, err := New(reg)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Conversions, m.AlgorithmRuns, m.RunDuration, m.DataLive}
}
