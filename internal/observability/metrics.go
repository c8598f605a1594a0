// Package observability wires the process-level telemetry: prometheus
// metrics, an OTLP tracer, and the HTTP endpoint that serves both health
// and metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ParseSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upysize_parse_seconds",
		Help:    "Time spent parsing one source file.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upysize_analysis_seconds",
		Help:    "End-to-end analysis time for one source file.",
		Buckets: prometheus.DefBuckets,
	})

	SuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upysize_suggestions_total",
		Help: "Suggestions emitted, by pattern kind.",
	}, []string{"pattern"})

	SavedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upysize_saved_bytes_total",
		Help: "Sum of estimated byte savings across all suggestions.",
	})

	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upysize_files_total",
		Help: "Files analyzed, by outcome.",
	}, []string{"status"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upysize_watcher_events_total",
		Help: "Filesystem events that triggered re-analysis.",
	})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upysize_cache_total",
		Help: "Result cache lookups, by outcome.",
	}, []string{"outcome"})
)
