package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/metrics"
	"github.com/llmscope/llmscope/pkg/models"
)

// Worker is a single drain worker that polls the queue and writes events
// to the store.
type Worker struct {
	id        string
	broker    *broker.Client
	store     EventStore
	publisher UpdatePublisher
	config    *config.QueueConfig
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Duration of one backoff step. Defaults to a second; tests shrink it.
	backoffUnit time.Duration

	// Health tracking
	mu                 sync.RWMutex
	status             WorkerStatus
	eventsProcessed    int64
	eventsDeadLettered int64
	lastActivity       time.Time
}

// NewWorker creates a new drain worker.
// publisher may be nil (live updates disabled).
func NewWorker(id string, broker *broker.Client, store EventStore, publisher UpdatePublisher, cfg *config.QueueConfig) *Worker {
	return &Worker{
		id:           id,
		broker:       broker,
		store:        store,
		publisher:    publisher,
		config:       cfg,
		stopCh:       make(chan struct{}),
		backoffUnit:  time.Second,
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish. An
// in-flight batch always completes first: every popped event reaches the
// store or the DLQ. It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                 w.id,
		Status:             w.status,
		EventsProcessed:    w.eventsProcessed,
		EventsDeadLettered: w.eventsDeadLettered,
		LastActivity:       w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("Worker started", "queue", w.config.QueueName)

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.drainOnce(ctx); err != nil {
				if errors.Is(err, ErrQueueEmpty) {
					w.sleep(w.config.PollInterval)
					continue
				}
				log.Error("Error draining queue", "error", err)
				w.sleep(time.Second) // Brief backoff on broker errors
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// drainOnce pops one batch from the queue and processes every payload in
// it. Returns ErrQueueEmpty when there is nothing to do.
func (w *Worker) drainOnce(ctx context.Context) error {
	depth, err := w.broker.Length(ctx, w.config.QueueName)
	if err != nil {
		return fmt.Errorf("checking queue depth: %w", err)
	}
	metrics.QueueDepth.Set(float64(depth))
	if depth == 0 {
		return ErrQueueEmpty
	}

	payloads, err := w.broker.PopBatch(ctx, w.config.QueueName, w.config.BatchSize)
	if err != nil {
		return fmt.Errorf("popping batch: %w", err)
	}
	if len(payloads) == 0 {
		return ErrQueueEmpty
	}

	w.setStatus(WorkerStatusWorking)
	defer w.setStatus(WorkerStatusIdle)

	start := time.Now()
	stored := 0
	for _, payload := range payloads {
		if w.processEvent(ctx, payload, 0) {
			stored++
		}
	}
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	w.mu.Lock()
	w.eventsProcessed += int64(stored)
	w.mu.Unlock()

	if stored > 0 {
		w.publishUpdate(ctx)
	}

	slog.Info("Batch processed",
		"worker_id", w.id,
		"batch_size", len(payloads),
		"stored", stored,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// processEvent writes one queued payload to the store, retrying with
// exponential backoff on failure. A payload that cannot be parsed or
// stored is dead-lettered; it is never requeued. Reports whether the
// event was stored.
func (w *Worker) processEvent(ctx context.Context, payload string, retryCount int) bool {
	var event models.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Error("Failed to parse queued event, dead-lettering",
			"worker_id", w.id, "error", err)
		w.sendToDLQ(ctx, payload, err, models.UnknownEventID)
		return false
	}

	if err := w.store.InsertEvent(ctx, &event); err != nil {
		if retryCount < w.config.MaxRetries {
			metrics.EventRetries.Inc()
			backoff := w.backoff(retryCount)
			slog.Warn("Store failed, retrying event",
				"worker_id", w.id,
				"event_id", event.ID,
				"attempt", retryCount+1,
				"max_retries", w.config.MaxRetries,
				"backoff", backoff,
				"error", err)
			// Not interruptible: a popped event must reach the store
			// or the DLQ before the worker exits.
			time.Sleep(backoff)
			return w.processEvent(ctx, payload, retryCount+1)
		}
		slog.Error("Retries exhausted, dead-lettering event",
			"worker_id", w.id, "event_id", event.ID, "error", err)
		w.sendToDLQ(ctx, payload, err, event.ID.String())
		return false
	}

	if retryCount > 0 {
		slog.Info("Event stored after retries",
			"worker_id", w.id, "event_id", event.ID, "retries", retryCount)
	}
	metrics.EventsStored.Inc()
	return true
}

// backoff returns the sleep before retry attempt retryCount+1:
// base^retryCount backoff units.
func (w *Worker) backoff(retryCount int) time.Duration {
	unit := w.backoffUnit
	if unit <= 0 {
		unit = time.Second
	}
	return time.Duration(math.Pow(w.config.RetryBackoffBase, float64(retryCount)) * float64(unit))
}

// sendToDLQ wraps the original payload in a dead-letter envelope and
// pushes it onto the DLQ. DLQ failures are logged and dropped; there is
// nowhere further to send the event.
func (w *Worker) sendToDLQ(ctx context.Context, payload string, cause error, eventID string) {
	entry := models.NewDLQEntry(payload, cause, eventID)
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Failed to serialize DLQ entry",
			"worker_id", w.id, "event_id", eventID, "error", err)
		return
	}
	if err := w.broker.Enqueue(ctx, w.config.DLQName, string(data)); err != nil {
		slog.Error("Failed to dead-letter event",
			"worker_id", w.id, "event_id", eventID, "error", err)
		return
	}
	metrics.EventsDeadLettered.Inc()

	w.mu.Lock()
	w.eventsDeadLettered++
	w.mu.Unlock()
}

// publishUpdate tells live viewers that new events are visible.
// Non-blocking for the pipeline: errors are logged.
func (w *Worker) publishUpdate(ctx context.Context) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishEventUpdate(ctx); err != nil {
		slog.Warn("Failed to publish event update", "worker_id", w.id, "error", err)
	}
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.lastActivity = time.Now()
}
