// Package metrics exposes Prometheus instrumentation for the ingest
// pipeline. Collectors are package-level and registered at init, so any
// package can record without wiring.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsIngested counts events accepted and enqueued at the API.
	EventsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "llmscope_events_ingested_total",
		Help: "Total number of events accepted at the ingest API",
	})

	// EventsStored counts events written to the event store.
	EventsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "llmscope_events_stored_total",
		Help: "Total number of events written to the event store",
	})

	// EventRetries counts store attempts beyond the first per event.
	EventRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "llmscope_event_retries_total",
		Help: "Total number of store write retries",
	})

	// EventsDeadLettered counts events moved to the dead-letter queue.
	EventsDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "llmscope_events_dead_lettered_total",
		Help: "Total number of events moved to the dead-letter queue",
	})

	// QueueDepth is the pending-event count observed at the last poll.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "llmscope_queue_depth",
		Help: "Number of events waiting in the ingest queue",
	})

	// DLQDepth is the dead-letter count observed at the last poll.
	DLQDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "llmscope_dlq_depth",
		Help: "Number of entries in the dead-letter queue",
	})

	// BatchDuration tracks wall time spent processing one popped batch.
	BatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "llmscope_batch_duration_seconds",
		Help:    "Time spent processing one batch of popped events",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	})

	// WSConnections is the number of live WebSocket viewers.
	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "llmscope_ws_connections",
		Help: "Number of connected WebSocket viewers",
	})
)

func init() {
	prometheus.MustRegister(EventsIngested)
	prometheus.MustRegister(EventsStored)
	prometheus.MustRegister(EventRetries)
	prometheus.MustRegister(EventsDeadLettered)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(DLQDepth)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(WSConnections)
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format.
func Handler() http.Handler {
	return promhttp.Handler()
}
