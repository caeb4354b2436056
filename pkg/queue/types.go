// Package queue provides the drain workers that move events from the
// broker into durable storage.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/llmscope/llmscope/pkg/models"
)

// ErrQueueEmpty indicates no events are waiting in the queue.
var ErrQueueEmpty = errors.New("queue empty")

// EventStore writes canonical events to durable storage. Implemented by
// database.Client.
type EventStore interface {
	InsertEvent(ctx context.Context, event *models.Event) error
}

// UpdatePublisher notifies live viewers that new events were stored.
// Implemented by events.TickPublisher.
type UpdatePublisher interface {
	PublishEventUpdate(ctx context.Context) error
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                 string       `json:"id"`
	Status             WorkerStatus `json:"status"`
	EventsProcessed    int64        `json:"events_processed"`
	EventsDeadLettered int64        `json:"events_dead_lettered"`
	LastActivity       time.Time    `json:"last_activity"`
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy       bool           `json:"is_healthy"`
	BrokerReachable bool           `json:"broker_reachable"`
	BrokerError     string         `json:"broker_error,omitempty"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalWorkers    int            `json:"total_workers"`
	QueueDepth      int64          `json:"queue_depth"`
	DLQDepth        int64          `json:"dlq_depth"`
	WorkerStats     []WorkerHealth `json:"worker_stats"`
}
