// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRows counts rows read from uploaded files by outcome (ok, failed).
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_import_rows_total",
			Help: "Rows read from uploaded holding files",
		},
		[]string{"outcome"},
	)

	// ImportFormats counts recognized uploads by container format.
	ImportFormats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_import_files_total",
			Help: "Uploaded holding files by detected format",
		},
		[]string{"format"},
	)

	// DistributionOutcomes counts synchronizer outcomes (synced, skipped, error).
	DistributionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_distribution_sync_total",
			Help: "Distribution synchronization outcomes",
		},
		[]string{"outcome"},
	)

	// Resyncs counts per-ticker resynchronizations by status (ok, failed).
	Resyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_resyncs_total",
			Help: "Ticker resynchronizations",
		},
		[]string{"status"},
	)

	// FeedDuration observes corporate action fetch latency.
	FeedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockfolio_feed_fetch_duration_seconds",
		Help:    "Corporate action feed fetch duration",
		Buckets: prometheus.DefBuckets,
	})

	// QuoteResolutions counts resolved quotes by the source that answered.
	QuoteResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_quote_resolutions_total",
			Help: "Resolved quotes by source",
		},
		[]string{"source"},
	)

	// HTTPRequests counts handled requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfolio_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration observes request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockfolio_http_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)
