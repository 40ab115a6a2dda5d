/*
Package metrics exposes Prometheus instrumentation for the suggestion core.

Metrics are registered on the default registry via promauto and served by
the maintain command when a metrics address is configured.

Each CLI invocation is its own process, so only what maintain does itself
shows up on its endpoint: refresh runs and, with suggest.warm_on_refresh,
the request, training and persist counters of the warm-up. Dismissal and
feedback counters move in the short-lived 'suggestions dismiss' process
and are lost when it exits; read those from the feedback log instead.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SuggestionRequests counts get-suggestions calls by outcome:
	// cache_hit, generated, empty, store_error.
	SuggestionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsuggest_suggestion_requests_total",
			Help: "Total number of suggestion requests by outcome",
		},
		[]string{"outcome"},
	)

	SuggestionsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calsuggest_suggestions_persisted_total",
			Help: "Total number of suggestion rows written",
		},
	)

	Dismissals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsuggest_dismissals_total",
			Help: "Total number of dismissed suggestions by feedback",
		},
		[]string{"feedback"},
	)

	PurgedSuggestions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calsuggest_purged_suggestions_total",
			Help: "Total number of dismissed suggestions removed by retention",
		},
	)

	EngineTrainings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calsuggest_engine_trainings_total",
			Help: "Total number of full engine retrains",
		},
	)

	EngineTrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "calsuggest_engine_train_duration_seconds",
			Help:    "Duration of full engine retrains in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	SimilarityThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "calsuggest_similarity_threshold",
			Help: "Current similarity threshold of the most recently updated engine",
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "calsuggest_store_breaker_state",
			Help: "Circuit breaker state of the suggestion store",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calsuggest_store_breaker_requests_total",
			Help: "Store calls through the circuit breaker by result",
		},
		[]string{"name", "result"},
	)
)

// Suggestion request outcomes.
const (
	OutcomeCacheHit   = "cache_hit"
	OutcomeGenerated  = "generated"
	OutcomeEmpty      = "empty"
	OutcomeStoreError = "store_error"
)

// RecordTraining records one full retrain.
func RecordTraining(duration time.Duration) {
	EngineTrainings.Inc()
	EngineTrainDuration.Observe(duration.Seconds())
}

// RecordDismissal records a dismissal labelled positive, negative, none or other.
func RecordDismissal(feedback string) {
	label := "other"
	switch feedback {
	case "":
		label = "none"
	case "positive", "negative":
		label = feedback
	}
	Dismissals.WithLabelValues(label).Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
