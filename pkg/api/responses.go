package api

import (
	"github.com/google/uuid"

	"github.com/llmscope/llmscope/pkg/models"
)

// IngestResponse is returned by POST /api/v1/events/ingest. The event is
// accepted, not yet durable; it becomes visible once a worker stores it.
type IngestResponse struct {
	Status  string    `json:"status"`
	EventID uuid.UUID `json:"event_id"`
}

// BatchIngestResponse is returned by POST /api/v1/events/ingest/batch.
type BatchIngestResponse struct {
	Status   string      `json:"status"`
	Count    int         `json:"count"`
	EventIDs []uuid.UUID `json:"event_ids"`
}

// RecentEventsResponse is returned by GET /api/v1/events/recent.
type RecentEventsResponse struct {
	Events []models.Event `json:"events"`
	Count  int            `json:"count"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck is the status of one dependency within HealthResponse.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}
