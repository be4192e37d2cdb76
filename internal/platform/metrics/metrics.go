// Package metrics exposes Prometheus instrumentation for the bot process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bot-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	commandsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bit_bot",
			Subsystem: "commands",
			Name:      "processed_total",
			Help:      "Total number of commands executed, by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)

	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bit_bot",
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Duration of command dispatch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"verb"},
	)

	duplicateEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bit_bot",
			Subsystem: "events",
			Name:      "duplicates_total",
			Help:      "Total number of inbound events suppressed as duplicates.",
		},
	)

	integrationGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bit_bot",
			Subsystem: "integrations",
			Name:      "grants_total",
			Help:      "Total number of integration bit grants, by integration name.",
		},
		[]string{"integration"},
	)
)

func init() {
	Registry.MustRegister(
		commandsProcessed,
		commandDuration,
		duplicateEvents,
		integrationGrants,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCommand records one dispatched command with its outcome.
func RecordCommand(verb, outcome string, duration time.Duration) {
	if verb == "" {
		verb = "unknown"
	}
	if duration <= 0 {
		duration = time.Millisecond
	}
	commandsProcessed.WithLabelValues(verb, outcome).Inc()
	commandDuration.WithLabelValues(verb).Observe(duration.Seconds())
}

// RecordDuplicateEvent records one suppressed duplicate delivery.
func RecordDuplicateEvent() {
	duplicateEvents.Inc()
}

// RecordIntegrationGrant records one successful integration bit grant.
func RecordIntegrationGrant(integration string) {
	if integration == "" {
		integration = "unknown"
	}
	integrationGrants.WithLabelValues(integration).Inc()
}
