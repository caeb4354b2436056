package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/llmscope/llmscope/pkg/models"
)

const insertEventSQL = `
INSERT INTO llm_events (
	id, time, tenant_id, project_id, model, provider, endpoint,
	user_id, session_id, tokens_prompt, tokens_completion, tokens_total,
	latency_ms, time_to_first_token_ms, cost_usd, messages, response,
	temperature, top_p, max_tokens, status, error_message, has_error,
	pii_detected, metadata
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
)
ON CONFLICT (id, time) DO NOTHING`

// InsertEvent writes one normalized event. A row that already exists
// under the same (id, time) is left untouched, so redelivering a payload
// after a worker restart is harmless.
func (c *Client) InsertEvent(ctx context.Context, event *models.Event) error {
	var messages, metadata []byte
	var err error
	if event.Messages != nil {
		if messages, err = json.Marshal(event.Messages); err != nil {
			return fmt.Errorf("failed to marshal messages for event %s: %w", event.ID, err)
		}
	}
	if event.Metadata != nil {
		if metadata, err = json.Marshal(event.Metadata); err != nil {
			return fmt.Errorf("failed to marshal metadata for event %s: %w", event.ID, err)
		}
	}

	ct, err := c.pool.Exec(ctx, insertEventSQL,
		event.ID, event.Time.UTC(), event.TenantID, event.ProjectID,
		event.Model, event.Provider, textOrNil(event.Endpoint),
		textOrNil(event.UserID), textOrNil(event.SessionID),
		event.TokensPrompt, event.TokensCompletion, event.TokensTotal,
		event.LatencyMs, event.TimeToFirstTokenMs,
		event.CostUSD.StringFixed(6), messages, textOrNil(event.Response),
		decimalOrNil(event.Temperature), decimalOrNil(event.TopP),
		event.MaxTokens, string(event.Status), textOrNil(event.ErrorMessage),
		event.HasError, event.PIIDetected, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
	}
	if ct.RowsAffected() == 0 {
		slog.Debug("Duplicate event ignored", "event_id", event.ID)
	}
	return nil
}

const recentEventsSQL = `
SELECT id, time, tenant_id, project_id, model, provider,
	COALESCE(endpoint, ''), COALESCE(user_id, ''), COALESCE(session_id, ''),
	tokens_prompt, tokens_completion, tokens_total, latency_ms,
	time_to_first_token_ms, cost_usd::text, messages,
	COALESCE(response, ''), temperature::text, top_p::text, max_tokens,
	status, COALESCE(error_message, ''), has_error, pii_detected, metadata
FROM llm_events
WHERE tenant_id = $1 AND project_id = $2
ORDER BY time DESC
LIMIT $3`

// RecentEvents returns the newest events for a scope, most recent first.
func (c *Client) RecentEvents(ctx context.Context, scope models.Scope, limit int) ([]models.Event, error) {
	rows, err := c.pool.Query(ctx, recentEventsSQL, scope.TenantID, scope.ProjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0, limit)
	for rows.Next() {
		var (
			e           models.Event
			costText    *string
			tempText    *string
			topPText    *string
			status      string
			messagesRaw []byte
			metadataRaw []byte
		)
		if err := rows.Scan(
			&e.ID, &e.Time, &e.TenantID, &e.ProjectID, &e.Model, &e.Provider,
			&e.Endpoint, &e.UserID, &e.SessionID,
			&e.TokensPrompt, &e.TokensCompletion, &e.TokensTotal, &e.LatencyMs,
			&e.TimeToFirstTokenMs, &costText, &messagesRaw,
			&e.Response, &tempText, &topPText, &e.MaxTokens,
			&status, &e.ErrorMessage, &e.HasError, &e.PIIDetected, &metadataRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		e.Status = models.EventStatus(status)
		if e.CostUSD, err = parseDecimal(costText); err != nil {
			return nil, fmt.Errorf("failed to parse cost for event %s: %w", e.ID, err)
		}
		if e.Temperature, err = parseDecimalPtr(tempText); err != nil {
			return nil, fmt.Errorf("failed to parse temperature for event %s: %w", e.ID, err)
		}
		if e.TopP, err = parseDecimalPtr(topPText); err != nil {
			return nil, fmt.Errorf("failed to parse top_p for event %s: %w", e.ID, err)
		}
		if messagesRaw != nil {
			if err := json.Unmarshal(messagesRaw, &e.Messages); err != nil {
				return nil, fmt.Errorf("failed to decode messages for event %s: %w", e.ID, err)
			}
		}
		if metadataRaw != nil {
			if err := json.Unmarshal(metadataRaw, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for event %s: %w", e.ID, err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// CountEvents returns the number of stored events for a scope.
func (c *Client) CountEvents(ctx context.Context, scope models.Scope) (int64, error) {
	var count int64
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM llm_events WHERE tenant_id = $1 AND project_id = $2`,
		scope.TenantID, scope.ProjectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// ScopeSeeded reports whether the tenant and project rows for the given
// scope exist. A false result means the seed migration has not run
// against this database.
func (c *Client) ScopeSeeded(ctx context.Context, scope models.Scope) (bool, error) {
	var seeded bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)
		    AND EXISTS (SELECT 1 FROM projects WHERE id = $2 AND tenant_id = $1)`,
		scope.TenantID, scope.ProjectID,
	).Scan(&seeded)
	if err != nil {
		return false, fmt.Errorf("failed to check scope seed: %w", err)
	}
	return seeded, nil
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDecimal(s *string) (decimal.Decimal, error) {
	if s == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*s)
}

func parseDecimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
