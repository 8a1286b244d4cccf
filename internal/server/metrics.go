package server

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the newsletter API.
type Metrics struct {
	registry *prom.Registry

	requests       *prom.CounterVec
	cleanupRemoved prom.Counter
}

// NewMetrics constructs and registers the API metrics.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{registry: reg}

	m.requests = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "newsletter",
		Name:      "requests_total",
		Help:      "Newsletter API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	m.cleanupRemoved = prom.NewCounter(prom.CounterOpts{
		Namespace: "newsletter",
		Name:      "cleanup_removed_total",
		Help:      "Stale pending subscribers removed by cleanup runs",
	})

	reg.MustRegister(m.requests, m.cleanupRemoved)
	return m
}

func (m *Metrics) IncRequest(endpoint, outcome string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) AddCleanupRemoved(n int64) {
	if m == nil || m.cleanupRemoved == nil {
		return
	}
	m.cleanupRemoved.Add(float64(n))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
