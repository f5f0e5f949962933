package network

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports simulation counters. A nil *Metrics records nothing.
type Metrics struct {
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	flattens     prometheus.Counter
	units        prometheus.Gauge
	connections  prometheus.Gauge
}

// NewMetrics registers the network collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delaynet",
			Name:      "steps_total",
			Help:      "Simulation steps taken, by mode.",
		}, []string{"mode"}),
		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "delaynet",
			Name:      "step_duration_seconds",
			Help:      "Wall time of one simulation step.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"mode"}),
		flattens: f.NewCounter(prometheus.CounterOpts{
			Namespace: "delaynet",
			Name:      "flattens_total",
			Help:      "Networks flattened.",
		}),
		units: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "delaynet",
			Name:      "units",
			Help:      "Units in the most recently built network.",
		}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "delaynet",
			Name:      "connections",
			Help:      "Unit inputs in the most recently built network.",
		}),
	}
}

func (m *Metrics) observeStep(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(mode).Inc()
	m.stepDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) flattened() {
	if m == nil {
		return
	}
	m.flattens.Inc()
}

func (m *Metrics) setSize(units, connections int) {
	if m == nil {
		return
	}
	m.units.Set(float64(units))
	m.connections.Set(float64(connections))
}
