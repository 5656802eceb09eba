// Package metrics exposes Prometheus instrumentation for caption extraction.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caption_api"

// Recorder counts strategy attempts, extraction outcomes and cache hits.
type Recorder struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	extractions     *prometheus.CounterVec
	extractDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// New creates a Recorder on its own registry, which also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_attempts_total",
			Help:      "Strategy attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strategy_attempt_duration_seconds",
			Help:      "Duration of individual strategy attempts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"strategy"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Completed extractions by winning strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		extractDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end duration of the fallback chain.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Caption cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.attempts,
		r.attemptDuration,
		r.extractions,
		r.extractDuration,
		r.cacheLookups,
	)
	return r
}

// ObserveAttempt records one strategy attempt.
func (r *Recorder) ObserveAttempt(strategy, outcome string, elapsed time.Duration) {
	r.attempts.WithLabelValues(strategy, outcome).Inc()
	r.attemptDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// ObserveExtraction records the outcome of a whole fallback chain. strategy
// is empty when no strategy succeeded.
func (r *Recorder) ObserveExtraction(strategy, outcome string, elapsed time.Duration) {
	if strategy == "" {
		strategy = "none"
	}
	r.extractions.WithLabelValues(strategy, outcome).Inc()
	r.extractDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveCache records a cache hit or miss.
func (r *Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
