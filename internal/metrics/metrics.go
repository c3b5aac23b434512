// Package metrics exposes the extraction engine's prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Extractions    *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	CandidateLinks *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
}

// New registers the instruments on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractions_total",
				Help: "Finished extractions by source and terminal status",
			},
			[]string{"source", "status"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_lookups_total",
				Help: "Cache lookups by result",
			},
			[]string{"result"}, // "hit" or "miss"
		),
		CandidateLinks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidate_links_total",
				Help: "Ranked candidate links found on listing pages",
			},
			[]string{"source"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fetch_duration_seconds",
				Help:    "Time taken to download a page",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"}, // "listing" or "detail"
		),
	}
}

// Registry returns the registry the instruments live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveExtraction(source, status string) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(source, status).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCandidates(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CandidateLinks.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ObserveFetch(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(stage).Observe(d.Seconds())
}
