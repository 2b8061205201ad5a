package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus collectors, kept on a private
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Turns          *prometheus.CounterVec
	Errors         prometheus.Counter
	ActiveSessions prometheus.Gauge
	Reloads        *prometheus.CounterVec
	Latency        prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eliza",
			Name:      "turns_total",
			Help:      "Answered utterances by reply source.",
		}, []string{"source"}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eliza",
			Name:      "turn_errors_total",
			Help:      "Turns that failed on a script defect or store error.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eliza",
			Name:      "active_sessions",
			Help:      "Live sessions.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eliza",
			Name:      "script_reloads_total",
			Help:      "Script reload attempts by result.",
		}, []string{"result"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eliza",
			Name:      "turn_duration_seconds",
			Help:      "Time to answer one utterance.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.Turns, m.Errors, m.ActiveSessions, m.Reloads, m.Latency)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
