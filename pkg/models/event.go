// Package models defines the canonical event types flowing through the
// ingestion pipeline: the client-submitted partial record, the normalized
// event, and the dead-letter envelope.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventStatus is the terminal status of the observed LLM call.
type EventStatus string

// Event status values.
const (
	StatusSuccess EventStatus = "success"
	StatusError   EventStatus = "error"
)

// Event is the canonical record of one LLM API call. This exact form is
// what ingest enqueues and what the worker writes to storage; it never
// changes shape between the two.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Time      time.Time `json:"time"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ProjectID uuid.UUID `json:"project_id"`

	Model    string `json:"model"`
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	TokensPrompt     int `json:"tokens_prompt"`
	TokensCompletion int `json:"tokens_completion"`
	TokensTotal      int `json:"tokens_total"`

	LatencyMs          int64  `json:"latency_ms"`
	TimeToFirstTokenMs *int64 `json:"time_to_first_token_ms,omitempty"`

	CostUSD decimal.Decimal `json:"cost_usd"`

	Messages []map[string]any `json:"messages,omitempty"`
	Response string           `json:"response,omitempty"`

	Temperature *decimal.Decimal `json:"temperature,omitempty"`
	TopP        *decimal.Decimal `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`

	Status       EventStatus `json:"status"`
	HasError     bool        `json:"has_error"`
	PIIDetected  bool        `json:"pii_detected"`
	ErrorMessage string      `json:"error_message,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// EventSubmission is the client-submitted partial record accepted at the
// ingest boundary. Required fields use pointers so that "absent" and
// "zero" are distinguishable during validation.
type EventSubmission struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Time *time.Time `json:"time,omitempty"`

	Model    string `json:"model"`
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	TokensPrompt     *int `json:"tokens_prompt"`
	TokensCompletion *int `json:"tokens_completion"`
	TokensTotal      *int `json:"tokens_total,omitempty"`

	LatencyMs          *int64 `json:"latency_ms"`
	TimeToFirstTokenMs *int64 `json:"time_to_first_token_ms,omitempty"`

	CostUSD *decimal.Decimal `json:"cost_usd,omitempty"`

	Messages []map[string]any `json:"messages,omitempty"`
	Response string           `json:"response,omitempty"`

	Temperature *decimal.Decimal `json:"temperature,omitempty"`
	TopP        *decimal.Decimal `json:"top_p,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`

	Status       string `json:"status,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	PIIDetected  bool   `json:"pii_detected,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Scope is the (tenant, project) pair injected into every event at ingest.
type Scope struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	ProjectID uuid.UUID `json:"project_id"`
}
