package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/llmscope/llmscope/pkg/metrics"
	"github.com/llmscope/llmscope/pkg/models"
)

// Read bounds for the recent-events endpoint.
const (
	DefaultRecentLimit = 100
	MaxRecentLimit     = 1000
)

// QueueInspector reads queue depths. Implemented by broker.Client.
type QueueInspector interface {
	Length(ctx context.Context, queue string) (int64, error)
}

// EventReader queries the event store. Implemented by database.Client.
type EventReader interface {
	RecentEvents(ctx context.Context, scope models.Scope, limit int) ([]models.Event, error)
	CountEvents(ctx context.Context, scope models.Scope) (int64, error)
}

// QueueStats is the broker-side view of the pipeline.
type QueueStats struct {
	QueueLength int64  `json:"queue_length"`
	DLQLength   int64  `json:"dlq_length"`
	QueueName   string `json:"queue_name"`
	DLQName     string `json:"dlq_name"`
}

// PipelineStats combines queue depths with the stored-event count.
// ProcessingLag is the queue depth: events acknowledged to clients but
// not yet stored.
type PipelineStats struct {
	QueueStats
	TotalEventsStored int64     `json:"total_events_stored"`
	ProcessingLag     int64     `json:"processing_lag"`
	TenantID          uuid.UUID `json:"tenant_id"`
	ProjectID         uuid.UUID `json:"project_id"`
}

// StatsService answers read queries about the pipeline: recent events,
// stored totals, and queue depths.
type StatsService struct {
	broker    QueueInspector
	store     EventReader
	queueName string
	dlqName   string
	scope     models.Scope
}

// NewStatsService creates a new StatsService.
func NewStatsService(broker QueueInspector, store EventReader, queueName, dlqName string, scope models.Scope) *StatsService {
	if broker == nil {
		panic("NewStatsService: broker must not be nil")
	}
	if store == nil {
		panic("NewStatsService: store must not be nil")
	}
	return &StatsService{
		broker:    broker,
		store:     store,
		queueName: queueName,
		dlqName:   dlqName,
		scope:     scope,
	}
}

// QueueStats reads current queue and DLQ depths.
func (s *StatsService) QueueStats(ctx context.Context) (*QueueStats, error) {
	queueLen, err := s.broker.Length(ctx, s.queueName)
	if err != nil {
		return nil, err
	}
	dlqLen, err := s.broker.Length(ctx, s.dlqName)
	if err != nil {
		return nil, err
	}

	metrics.QueueDepth.Set(float64(queueLen))
	metrics.DLQDepth.Set(float64(dlqLen))

	return &QueueStats{
		QueueLength: queueLen,
		DLQLength:   dlqLen,
		QueueName:   s.queueName,
		DLQName:     s.dlqName,
	}, nil
}

// PipelineStats combines queue depths with the stored-event total for
// the service scope.
func (s *StatsService) PipelineStats(ctx context.Context) (*PipelineStats, error) {
	queueStats, err := s.QueueStats(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountEvents(ctx, s.scope)
	if err != nil {
		return nil, err
	}

	return &PipelineStats{
		QueueStats:        *queueStats,
		TotalEventsStored: total,
		ProcessingLag:     queueStats.QueueLength,
		TenantID:          s.scope.TenantID,
		ProjectID:         s.scope.ProjectID,
	}, nil
}

// RecentEvents returns the newest stored events, most recent first. A
// non-positive limit falls back to the default; anything above the cap
// is clamped.
func (s *StatsService) RecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.store.RecentEvents(ctx, s.scope, limit)
}
