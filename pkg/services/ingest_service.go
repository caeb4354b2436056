// Package services holds the domain logic between the HTTP handlers and
// the broker/store adapters: event normalization, enqueueing, and the
// pipeline statistics surface.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llmscope/llmscope/pkg/metrics"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/pricing"
)

// MaxBatchSize is the largest number of events accepted in one batch
// ingest request.
const MaxBatchSize = 100

// Enqueuer pushes payloads onto a named queue. Implemented by
// broker.Client.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, payload string) error
}

// IngestService normalizes client submissions into canonical events and
// enqueues them. The client is acknowledged at enqueue time; storage
// happens later in the worker.
type IngestService struct {
	broker    Enqueuer
	queueName string
	scope     models.Scope

	// Injection points for deterministic tests.
	now   func() time.Time
	newID func() uuid.UUID
}

// NewIngestService creates a new IngestService.
func NewIngestService(broker Enqueuer, queueName string, scope models.Scope) *IngestService {
	if broker == nil {
		panic("NewIngestService: broker must not be nil")
	}
	if queueName == "" {
		panic("NewIngestService: queueName must not be empty")
	}
	return &IngestService{
		broker:    broker,
		queueName: queueName,
		scope:     scope,
		now:       time.Now,
		newID:     uuid.New,
	}
}

// Normalize turns a client submission into the canonical event form:
// required fields validated, scope injected, ID and time filled when
// absent, tokens_total derived, and cost priced from the model table
// unless the client supplied one. The returned event is exactly what
// gets enqueued and, later, stored.
func (s *IngestService) Normalize(sub *models.EventSubmission) (*models.Event, error) {
	if sub.Model == "" {
		return nil, NewValidationError("model", "model is required")
	}
	if sub.Provider == "" {
		return nil, NewValidationError("provider", "provider is required")
	}
	if sub.TokensPrompt == nil {
		return nil, NewValidationError("tokens_prompt", "tokens_prompt is required")
	}
	if *sub.TokensPrompt < 0 {
		return nil, NewValidationError("tokens_prompt", "tokens_prompt must be non-negative")
	}
	if sub.TokensCompletion == nil {
		return nil, NewValidationError("tokens_completion", "tokens_completion is required")
	}
	if *sub.TokensCompletion < 0 {
		return nil, NewValidationError("tokens_completion", "tokens_completion must be non-negative")
	}
	if sub.LatencyMs == nil {
		return nil, NewValidationError("latency_ms", "latency_ms is required")
	}
	if *sub.LatencyMs < 0 {
		return nil, NewValidationError("latency_ms", "latency_ms must be non-negative")
	}
	if sub.TimeToFirstTokenMs != nil && *sub.TimeToFirstTokenMs < 0 {
		return nil, NewValidationError("time_to_first_token_ms", "time_to_first_token_ms must be non-negative")
	}
	if sub.MaxTokens != nil && *sub.MaxTokens <= 0 {
		return nil, NewValidationError("max_tokens", "max_tokens must be positive")
	}

	tokensTotal := *sub.TokensPrompt + *sub.TokensCompletion
	if sub.TokensTotal != nil && *sub.TokensTotal != tokensTotal {
		return nil, NewValidationError("tokens_total", "tokens_total must equal tokens_prompt + tokens_completion")
	}

	status := models.StatusSuccess
	switch sub.Status {
	case "", string(models.StatusSuccess):
	case string(models.StatusError):
		status = models.StatusError
	default:
		return nil, NewValidationError("status", "status must be 'success' or 'error'")
	}

	cost := pricing.Cost(sub.Model, *sub.TokensPrompt, *sub.TokensCompletion)
	if sub.CostUSD != nil {
		if sub.CostUSD.IsNegative() {
			return nil, NewValidationError("cost_usd", "cost_usd must be non-negative")
		}
		cost = *sub.CostUSD
	}

	id := s.newID()
	if sub.ID != nil {
		id = *sub.ID
	}
	eventTime := s.now().UTC()
	if sub.Time != nil {
		eventTime = sub.Time.UTC()
	}

	return &models.Event{
		ID:                 id,
		Time:               eventTime,
		TenantID:           s.scope.TenantID,
		ProjectID:          s.scope.ProjectID,
		Model:              sub.Model,
		Provider:           sub.Provider,
		Endpoint:           sub.Endpoint,
		UserID:             sub.UserID,
		SessionID:          sub.SessionID,
		TokensPrompt:       *sub.TokensPrompt,
		TokensCompletion:   *sub.TokensCompletion,
		TokensTotal:        tokensTotal,
		LatencyMs:          *sub.LatencyMs,
		TimeToFirstTokenMs: sub.TimeToFirstTokenMs,
		CostUSD:            cost,
		Messages:           sub.Messages,
		Response:           sub.Response,
		Temperature:        sub.Temperature,
		TopP:               sub.TopP,
		MaxTokens:          sub.MaxTokens,
		Status:             status,
		HasError:           status == models.StatusError,
		PIIDetected:        sub.PIIDetected,
		ErrorMessage:       sub.ErrorMessage,
		Metadata:           sub.Metadata,
	}, nil
}

// Ingest normalizes and enqueues one event, returning the assigned ID.
func (s *IngestService) Ingest(ctx context.Context, sub *models.EventSubmission) (uuid.UUID, error) {
	event, err := s.Normalize(sub)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.enqueue(ctx, event); err != nil {
		return uuid.Nil, err
	}
	metrics.EventsIngested.Inc()
	return event.ID, nil
}

// IngestBatch normalizes every event before enqueueing any, so a batch
// with one invalid event is rejected whole. Enqueueing is sequential;
// when the broker fails mid-batch the already-enqueued prefix stays
// queued and the client receives the error.
func (s *IngestService) IngestBatch(ctx context.Context, subs []models.EventSubmission) ([]uuid.UUID, error) {
	events := make([]*models.Event, 0, len(subs))
	for i := range subs {
		event, err := s.Normalize(&subs[i])
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}

	ids := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := s.enqueue(ctx, event); err != nil {
			return nil, err
		}
		metrics.EventsIngested.Inc()
		ids = append(ids, event.ID)
	}
	return ids, nil
}

func (s *IngestService) enqueue(ctx context.Context, event *models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.ID, err)
	}
	if err := s.broker.Enqueue(ctx, s.queueName, string(payload)); err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", event.ID, err)
	}
	return nil
}
