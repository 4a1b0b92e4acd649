// Package metrics holds the Prometheus instruments of the service. They are
// registered on a dedicated registry so tests can create fresh sets.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "insightforge"

// Metrics groups every instrument
type Metrics struct {
	Registry *prometheus.Registry

	AnalysesTotal   *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	JobsInFlight    prometheus.Gauge
	StaleResults    prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

// New creates the instruments on a fresh registry that also exposes Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome (ok, error, cached).",
		}, []string{"outcome"}),
		AnalysisSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one engine pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by result (hit, miss, error).",
		}, []string{"result"}),
		JobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Background analyses currently running.",
		}),
		StaleResults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Background results discarded because a newer submission superseded them.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests, by route and status code.",
		}, []string{"route", "code"}),
	}
}
