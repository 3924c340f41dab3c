// Package metrics exposes Prometheus instrumentation for recommendation and HTTP traffic.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperjump/movierec/internal/models"
)

// Outcome labels for RecommendationsTotal.
const (
	OutcomeOK              = "ok"
	OutcomeNotFound        = "not_found"
	OutcomeInvalidArgument = "invalid_argument"
	OutcomeError           = "error"
)

var (
	// Recommendation metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_recommendations_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movierec_recommendation_duration_seconds",
			Help:    "Duration of recommendation lookups in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	TitleSearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_title_searches_total",
			Help: "Total number of fuzzy title searches",
		},
	)

	// Result cache metrics
	ResultCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_result_cache_hits_total",
			Help: "Total number of recommendation result cache hits",
		},
	)

	ResultCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierec_result_cache_misses_total",
			Help: "Total number of recommendation result cache misses",
		},
	)

	// Snapshot metrics
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierec_catalog_items",
			Help: "Number of items in the loaded snapshot",
		},
	)

	EmbeddingDimensions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierec_embedding_dimensions",
			Help: "Dimension of the loaded embedding vectors",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierec_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierec_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierec_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Outcome maps a recommendation error to its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, models.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, models.ErrInvalidArgument):
		return OutcomeInvalidArgument
	default:
		return OutcomeError
	}
}

// RecordRecommendation records one recommendation call.
func RecordRecommendation(duration time.Duration, err error) {
	RecommendationsTotal.WithLabelValues(Outcome(err)).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		ResultCacheHits.Inc()
		return
	}
	ResultCacheMisses.Inc()
}

// RecordTitleSearch counts a fuzzy title search.
func RecordTitleSearch() {
	TitleSearchesTotal.Inc()
}

// SetSnapshotInfo publishes the shape of the loaded snapshot.
func SetSnapshotInfo(items, dimensions int) {
	CatalogItems.Set(float64(items))
	EmbeddingDimensions.Set(float64(dimensions))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
