// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Recommendation strategies (latency, outcomes, degradations)
// - Graph and vector index operations
// - Embedding and enrichment calls
// - Index synchronization and the retry queue
// - Cache efficiency
// - API endpoint latency and throughput

var (
	// Recommendation Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "outcome"}, // outcome: "ok", "empty", "degraded"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	RecommendationResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_results",
			Help:    "Number of movies returned per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"strategy"},
	)

	// Graph Index Metrics
	GraphQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_query_duration_seconds",
			Help:    "Duration of graph index operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GraphQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_query_errors_total",
			Help: "Total number of failed graph index operations",
		},
		[]string{"operation"},
	)

	// Vector Index Metrics
	VectorQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vector_query_duration_seconds",
			Help:    "Duration of vector index operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	VectorQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_query_errors_total",
			Help: "Total number of failed vector index operations",
		},
		[]string{"operation"},
	)

	VectorRecordsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vector_records_upserted_total",
			Help: "Total number of vector records written",
		},
		[]string{"collection"},
	)

	// Embedding Metrics
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "embedding_duration_seconds",
			Help:    "Duration of embedding calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	EmbeddingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_errors_total",
			Help: "Total number of failed embedding calls",
		},
		[]string{"provider"},
	)

	// Enrichment Metrics
	EnrichRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_requests_total",
			Help: "Total number of metadata enrichment lookups",
		},
		[]string{"outcome"}, // "ok", "not_found", "error"
	)

	EnrichDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_duration_seconds",
			Help:    "Duration of metadata enrichment lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync Metrics
	SyncOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Total number of incremental index sync operations",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "queued", "failed"
	)

	RebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_rebuild_duration_seconds",
			Help:    "Duration of full index rebuilds in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"index"},
	)

	RebuildRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rebuild_records_total",
			Help: "Total number of records projected by full rebuilds",
		},
		[]string{"index", "kind"},
	)

	RebuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rebuild_errors_total",
			Help: "Total number of failed full rebuilds",
		},
		[]string{"index"},
	)

	RebuildLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_rebuild_last_success_timestamp",
			Help: "Unix timestamp of the last successful rebuild",
		},
		[]string{"index"},
	)

	// Retry Queue Metrics
	QueueMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_queue_messages_total",
			Help: "Total number of retry queue messages by outcome",
		},
		[]string{"outcome"}, // "published", "replayed", "failed", "poisoned"
	)

	QueuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_pending",
			Help: "Number of journaled changes not yet acknowledged",
		},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "user_based", "movie_content"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry and explicit deletes)",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordRecommendation records one recommendation request.
func RecordRecommendation(strategy string, results int, degraded bool, duration time.Duration) {
	outcome := "ok"
	switch {
	case degraded:
		outcome = "degraded"
	case results == 0:
		outcome = "empty"
	}
	RecommendationRequests.WithLabelValues(strategy, outcome).Inc()
	RecommendationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	RecommendationResults.WithLabelValues(strategy).Observe(float64(results))
}

// RecordGraphQuery records a graph index operation.
func RecordGraphQuery(operation string, duration time.Duration, err error) {
	GraphQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		GraphQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordVectorQuery records a vector index operation.
func RecordVectorQuery(operation string, duration time.Duration, err error) {
	VectorQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		VectorQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordEmbedding records an embedding call.
func RecordEmbedding(provider string, duration time.Duration, err error) {
	EmbeddingDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if err != nil {
		EmbeddingErrors.WithLabelValues(provider).Inc()
	}
}

// RecordEnrich records a metadata lookup.
func RecordEnrich(outcome string, duration time.Duration) {
	EnrichRequests.WithLabelValues(outcome).Inc()
	EnrichDuration.Observe(duration.Seconds())
}

// RecordSync records an incremental sync outcome.
func RecordSync(kind, outcome string) {
	SyncOperations.WithLabelValues(kind, outcome).Inc()
}

// RecordRebuild records a full rebuild of one index.
func RecordRebuild(index string, duration time.Duration, err error) {
	RebuildDuration.WithLabelValues(index).Observe(duration.Seconds())
	if err != nil {
		RebuildErrors.WithLabelValues(index).Inc()
		return
	}
	RebuildLastSuccess.WithLabelValues(index).Set(float64(time.Now().Unix()))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
