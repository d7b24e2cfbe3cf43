// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "casegrid"

// Listing outcomes.
const (
	ListingServed   = "served"
	ListingCached   = "cached"
	ListingFallback = "fallback"
)

// Mutation outcomes.
const (
	MutationOK    = "ok"
	MutationError = "error"
)

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	Listings         *prometheus.CounterVec
	ListingDuration  prometheus.Histogram
	Mutations        *prometheus.CounterVec
	ReplacementsMade prometheus.Counter
	CacheErrors      prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Listings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Task listings by outcome.",
		}, []string{"outcome"}),
		ListingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listing_duration_seconds",
			Help:      "Time spent producing a task listing, cache included.",
			Buckets:   prometheus.DefBuckets,
		}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Single-row mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ReplacementsMade: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replacement_tasks_total",
			Help:      "Rows inserted to keep the population size after deletes.",
		}),
		CacheErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Listing cache operations that failed and were ignored.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
