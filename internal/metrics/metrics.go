// Package metrics provides Prometheus metrics for PlantSentry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "plantsentry"
)

// Poller metrics
var (
	// PollCyclesTotal counts completed polling cycles.
	PollCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cycles_total",
			Help:      "Total polling cycles executed",
		},
	)

	// SourceFetchErrors counts alert-source fetch failures.
	SourceFetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "source_fetch_errors_total",
			Help:      "Total alert source fetch failures",
		},
	)

	// AlertsFetched counts alerts returned by the source.
	AlertsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "alerts_fetched_total",
			Help:      "Total alerts returned by the alert source",
		},
	)

	// AlertsIngested counts alerts accepted into the identity store.
	AlertsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "alerts_ingested_total",
			Help:      "Total alerts accepted into the identity store",
		},
	)

	// AlertsDiscarded counts alerts dropped before ingestion, by reason.
	AlertsDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "alerts_discarded_total",
			Help:      "Total alerts discarded before ingestion",
		},
		[]string{"reason"}, // seen, stale, severity, invalid
	)

	// AlertsSuppressed counts notifications suppressed by the cooldown gate.
	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "alerts_suppressed_total",
			Help:      "Total notifications suppressed by the cooldown gate",
		},
	)

	// SeenSetSize tracks the size of the processed-id set.
	SeenSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "seen_set_size",
			Help:      "Current size of the processed alert id set",
		},
	)

	// InBackoff is 1 while the poller is backing off from a source failure.
	InBackoff = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "in_backoff",
			Help:      "1 while the poller is in backoff, 0 while polling",
		},
	)
)

// Notification metrics
var (
	// NotificationsSent counts successful per-subscriber sends.
	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Total notifications sent",
		},
	)

	// NotificationsFailed counts failed per-subscriber sends by reason.
	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "failed_total",
			Help:      "Total notification send failures",
		},
		[]string{"reason"}, // transport, throttled
	)
)

// Action metrics
var (
	// ActionsRecorded counts operator actions by type.
	ActionsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actions",
			Name:      "recorded_total",
			Help:      "Total operator actions recorded",
		},
		[]string{"type"}, // interlock, bypass, rearm
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
