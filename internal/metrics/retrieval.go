package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval engine Prometheus metrics.
var (
	RetrievalQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_queries_total",
			Help:      "Retrieval queries by detected intent and outcome",
		},
		[]string{"intent", "status"},
	)

	RetrievalResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_results",
			Help:      "Number of results returned after gap filtering",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"intent"},
	)

	RetrievalCutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_cuts_total",
			Help:      "Gap filter decisions by strategy",
		},
		[]string{"strategy"},
	)

	RetrievalForcedEntitiesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_forced_entities_total",
			Help:      "Entity representatives re-inserted after filtering",
		},
	)

	RetrievalQueryMustDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_query_must_dropped_total",
			Help:      "Candidates dropped by query_must requirements",
		},
	)

	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vector_search_duration_seconds",
			Help:      "Vector search duration in seconds, embedding included",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// Answer generation Prometheus metrics.
var (
	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of answer generation requests",
		},
		[]string{"model", "status"},
	)

	CompletionTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_tokens_total",
			Help:      "Total answer generation tokens consumed",
		},
		[]string{"model", "type"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_request_duration_seconds",
			Help:      "Answer generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"model"},
	)
)

var retrievalMetricsOnce sync.Once

// RegisterRetrievalMetrics registers retrieval and answer metrics. Safe to call more than once.
func RegisterRetrievalMetrics() {
	retrievalMetricsOnce.Do(func() {
		prometheus.MustRegister(
			RetrievalQueriesTotal,
			RetrievalResults,
			RetrievalCutsTotal,
			RetrievalForcedEntitiesTotal,
			RetrievalQueryMustDroppedTotal,
			VectorSearchDuration,
			CompletionRequestsTotal,
			CompletionTokensTotal,
			CompletionRequestDuration,
		)
	})
}
