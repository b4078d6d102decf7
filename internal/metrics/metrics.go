// Package metrics exposes the Prometheus collectors shared by the postboard
// services. Collectors register with the default registry exactly once.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postboard"

// Embedding policy outcomes
const (
	EmbeddingSupplied    = "supplied"
	EmbeddingGenerated   = "generated"
	EmbeddingDiscarded   = "discarded"
	EmbeddingUnavailable = "unavailable"
)

// Sync outcomes
const (
	SyncInserted = "inserted"
	SyncUpdated  = "updated"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	SearchRequests  *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	EmbeddingResult *prometheus.CounterVec
	CommentsPurged  prometheus.Counter
	SyncPosts       *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// Get returns the process-wide collectors, registering them on first use.
//
// Metrics:
//   - postboard_search_requests_total{source}
//   - postboard_search_duration_seconds
//   - postboard_embedding_requests_total{result}
//   - postboard_comments_purged_total
//   - postboard_sync_posts_total{outcome}
//   - postboard_http_requests_total{method,route,status}
//   - postboard_http_request_duration_seconds{method,route}
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{
			SearchRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "search_requests_total",
					Help:      "Search requests by result source",
				},
				[]string{"source"}, // "embeddings" or "lexical"
			),
			SearchDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "search_duration_seconds",
					Help:      "Duration of hybrid search requests",
					Buckets:   prometheus.DefBuckets,
				},
			),
			EmbeddingResult: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "embedding_requests_total",
					Help:      "Embedding policy decisions by result",
				},
				[]string{"result"},
			),
			CommentsPurged: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "comments_purged_total",
					Help:      "Tombstoned comments physically removed",
				},
			),
			SyncPosts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "sync_posts_total",
					Help:      "Posts written by bulk sync",
				},
				[]string{"outcome"},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "http_requests_total",
					Help:      "HTTP requests by method, route template and status code",
				},
				[]string{"method", "route", "status"},
			),
			HTTPDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "http_request_duration_seconds",
					Help:      "HTTP request latency by method and route template",
					Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
				},
				[]string{"method", "route"},
			),
		}
	})
	return global
}
