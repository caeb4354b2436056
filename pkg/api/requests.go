package api

import "github.com/llmscope/llmscope/pkg/models"

// BatchIngestRequest is the HTTP request body for POST /api/v1/events/ingest/batch.
type BatchIngestRequest struct {
	Events []models.EventSubmission `json:"events"`
}
