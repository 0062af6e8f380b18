// Package metrics holds the Prometheus collectors for the triage pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound emails that reached the store
	EmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_emails_processed_total",
			Help: "Total number of inbound emails enriched and stored",
		},
		[]string{"status"}, // status: forwarded, forward_failed, store_failed
	)

	// Enrichment steps that fell back to a default value
	EnrichmentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_enrichment_fallbacks_total",
			Help: "Total number of enrichment steps that used their fallback value",
		},
		[]string{"step"}, // step: classify, sentiment, summary, customer_id
	)

	// Department forwards
	Forwards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_forwards_total",
			Help: "Total number of department forwards attempted",
		},
		[]string{"status"}, // status: sent, failed
	)

	// Auto-responses
	AutoResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_auto_responses_total",
			Help: "Total number of auto-response drafts by outcome",
		},
		[]string{"outcome"}, // outcome: sent, stored, failed
	)

	// Text intelligence latency (seconds)
	AdapterCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_adapter_call_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"operation", "status"},
	)

	// Poll cycle duration (seconds)
	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailtriage_poll_cycle_duration_seconds",
			Help:    "Inbox poll cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5m
		},
	)

	PollCycleFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailtriage_poll_cycle_failures_total",
			Help: "Total number of poll cycles aborted by a transport failure",
		},
	)
)

// IncrementEmailProcessed counts an inbound email by pipeline outcome
func IncrementEmailProcessed(status string) {
	EmailsProcessed.WithLabelValues(status).Inc()
}

// IncrementFallback counts an enrichment step that fell back
func IncrementFallback(step string) {
	EnrichmentFallbacks.WithLabelValues(step).Inc()
}

// IncrementForward counts a forward attempt
func IncrementForward(status string) {
	Forwards.WithLabelValues(status).Inc()
}

// IncrementAutoResponse counts an auto-response outcome
func IncrementAutoResponse(outcome string) {
	AutoResponses.WithLabelValues(outcome).Inc()
}

// RecordAdapterCall records one language model call
func RecordAdapterCall(operation, status string, duration time.Duration) {
	AdapterCallDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordPollCycle records the duration of one poll cycle
func RecordPollCycle(duration time.Duration) {
	PollCycleDuration.Observe(duration.Seconds())
}

// IncrementPollCycleFailure counts a poll cycle aborted by the transport
func IncrementPollCycleFailure() {
	PollCycleFailures.Inc()
}
