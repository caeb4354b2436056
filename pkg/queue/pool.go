package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
)

// WorkerPool manages a pool of drain workers sharing one queue.
type WorkerPool struct {
	broker    *broker.Client
	store     EventStore
	publisher UpdatePublisher
	config    *config.QueueConfig
	workers   []*Worker
	started   bool
}

// NewWorkerPool creates a new worker pool.
// publisher may be nil (live updates disabled).
func NewWorkerPool(broker *broker.Client, store EventStore, publisher UpdatePublisher, cfg *config.QueueConfig) *WorkerPool {
	if broker == nil {
		panic("NewWorkerPool: broker must not be nil")
	}
	if store == nil {
		panic("NewWorkerPool: store must not be nil")
	}
	return &WorkerPool{
		broker:    broker,
		store:     store,
		publisher: publisher,
		config:    cfg,
		workers:   make([]*Worker, 0, cfg.WorkerCount),
	}
}

// Start spawns the worker goroutines.
// It is safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return nil
	}
	p.started = true

	slog.Info("Starting worker pool",
		"worker_count", p.config.WorkerCount,
		"queue", p.config.QueueName,
		"batch_size", p.config.BatchSize)

	for i := 0; i < p.config.WorkerCount; i++ {
		worker := NewWorker(fmt.Sprintf("worker-%d", i), p.broker, p.store, p.publisher, p.config)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	slog.Info("Worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// Workers finish their in-flight batches before exiting.
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	for _, worker := range p.workers {
		worker.Stop()
	}

	slog.Info("Worker pool stopped gracefully")
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	queueDepth, errQ := p.broker.Length(ctx, p.config.QueueName)
	if errQ != nil {
		slog.Error("Failed to query queue depth for health check", "error", errQ)
	}
	dlqDepth, errD := p.broker.Length(ctx, p.config.DLQName)
	if errD != nil {
		slog.Error("Failed to query DLQ depth for health check", "error", errD)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == WorkerStatusWorking {
			activeWorkers++
		}
	}

	// Broker errors affect health status - if we can't reach the broker,
	// the pipeline is stalled.
	brokerHealthy := errQ == nil && errD == nil
	isHealthy := len(p.workers) > 0 && brokerHealthy

	var brokerError string
	if errQ != nil {
		brokerError = fmt.Sprintf("queue depth query failed: %v", errQ)
	} else if errD != nil {
		brokerError = fmt.Sprintf("dlq depth query failed: %v", errD)
	}

	return &PoolHealth{
		IsHealthy:       isHealthy,
		BrokerReachable: brokerHealthy,
		BrokerError:     brokerError,
		ActiveWorkers:   activeWorkers,
		TotalWorkers:    len(p.workers),
		QueueDepth:      queueDepth,
		DLQDepth:        dlqDepth,
		WorkerStats:     workerStats,
	}
}
