package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: a nil *Metrics records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	scans            *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	transitions      *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		registry: registry,
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docguard_scans_total",
				Help: "Security scans by outcome",
			},
			[]string{"outcome"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docguard_scan_duration_seconds",
				Help:    "Wall time of the external scanner process",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docguard_upstream_requests_total",
				Help: "Calls to remote AI collaborators by outcome",
			},
			[]string{"collaborator", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docguard_upstream_duration_seconds",
				Help:    "Latency of remote AI collaborator calls",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"collaborator"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docguard_session_transitions_total",
				Help: "Session lifecycle transitions by target state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(
		m.scans,
		m.scanDuration,
		m.upstreamRequests,
		m.upstreamDuration,
		m.transitions,
	)

	return m
}

// NewDefault builds a registry carrying the Go and process collectors as well.
func NewDefault() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(registry)
}

func (m *Metrics) ObserveScan(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
	m.scanDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveUpstream(collaborator, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(collaborator, outcome).Inc()
	m.upstreamDuration.WithLabelValues(collaborator).Observe(d.Seconds())
}

func (m *Metrics) ObserveTransition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
