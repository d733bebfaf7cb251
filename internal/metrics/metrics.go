// Package metrics exposes Prometheus instrumentation for the API, the
// recommendation pipeline and the upstream collaborators.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Recommendation pipeline
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_recommendations_total",
			Help: "Recommendation requests served, by emotion and candidate source",
		},
		[]string{"emotion", "source"}, // source: "request", "catalog", "detection"
	)

	RecommendationResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinemood_recommendation_result_size",
			Help:    "Number of movies returned per recommendation",
			Buckets: []float64{0, 1, 5, 10, 15, 20},
		},
	)

	EmotionDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_emotion_detections_total",
			Help: "Emotion detections, by resulting emotion and outcome",
		},
		[]string{"emotion", "outcome"}, // outcome: "detected", "fallback"
	)

	// Catalog
	CatalogPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinemood_catalog_pool_size",
			Help: "Movies in the most recently assembled candidate pool",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_cache_lookups_total",
			Help: "Movie cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Upstreams
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_upstream_requests_total",
			Help: "Calls to upstream services by outcome",
		},
		[]string{"upstream", "operation", "outcome"}, // outcome: "success", "failure"
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinemood_upstream_request_duration_seconds",
			Help:    "Duration of upstream calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "operation"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinemood_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_circuit_breaker_rejections_total",
			Help: "Calls rejected without reaching the upstream",
		},
		[]string{"name"},
	)

	// HTTP API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinemood_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRecommendation counts one recommendation and its result size.
func RecordRecommendation(emotion, source string, results int) {
	RecommendationsTotal.WithLabelValues(emotion, source).Inc()
	RecommendationResultSize.Observe(float64(results))
}

// RecordDetection counts one emotion detection.
func RecordDetection(emotion string, fallback bool) {
	outcome := "detected"
	if fallback {
		outcome = "fallback"
	}
	EmotionDetections.WithLabelValues(emotion, outcome).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordUpstream records the outcome and latency of an upstream call.
func RecordUpstream(upstream, operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	UpstreamRequests.WithLabelValues(upstream, operation, outcome).Inc()
	UpstreamDuration.WithLabelValues(upstream, operation).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
