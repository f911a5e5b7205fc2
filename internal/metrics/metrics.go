// Package metrics exposes pipeline counters on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixmill_jobs_submitted_total",
			Help: "Total number of jobs submitted to the orchestrator",
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixmill_jobs_processed_total",
			Help: "Total number of jobs processed successfully",
		},
		[]string{"format"},
	)

	JobsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixmill_jobs_failed_total",
			Help: "Total number of jobs that exhausted their attempts",
		},
	)

	JobsInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixmill_jobs_invalidated_total",
			Help: "Total number of processed jobs reset by a settings change",
		},
	)

	StaleCommits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixmill_stale_commits_total",
			Help: "Total number of results rejected because settings changed mid-flight",
		},
	)

	HeicConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixmill_heic_conversions_total",
			Help: "Total number of HEIC pre-conversions by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "error"
	)

	EncodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pixmill_encode_duration_seconds",
			Help:    "Wall time of a full decode-resize-encode pass",
			Buckets: prometheus.DefBuckets,
		},
	)
)
