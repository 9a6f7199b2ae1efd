// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civictrack"

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	IssuesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issues",
			Name:      "created_total",
			Help:      "Issues created, by category",
		},
		[]string{"category"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issues",
			Name:      "status_transitions_total",
			Help:      "Applied lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	SpamThresholdCrossings = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "threshold_crossings_total",
			Help:      "Issues hidden because their spam votes reached the threshold",
		},
	)

	SpamReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "spam_reports_total",
			Help:      "Accepted spam reports, by reason",
		},
		[]string{"reason"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "search_duration_seconds",
			Help:      "Search latency, by mode",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Side effects that failed without failing the request",
		},
		[]string{"operation"},
	)
)
