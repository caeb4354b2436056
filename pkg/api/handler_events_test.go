package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/services"
)

func TestRecentEventsHandler(t *testing.T) {
	parts := setupTestServer(t)
	parts.reader.events = []models.Event{
		{ID: uuid.New(), Time: time.Now().UTC(), Model: "gpt-4", Provider: "openai"},
		{ID: uuid.New(), Time: time.Now().UTC(), Model: "claude-3-opus", Provider: "anthropic"},
	}

	rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/recent?limit=50", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecentEventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "gpt-4", resp.Events[0].Model)
	assert.Equal(t, 50, parts.reader.lastLimit)
}

func TestRecentEventsHandlerLimits(t *testing.T) {
	parts := setupTestServer(t)

	t.Run("invalid limit", func(t *testing.T) {
		rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/recent?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid limit")
	})

	t.Run("missing limit uses default", func(t *testing.T) {
		rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/recent", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.DefaultRecentLimit, parts.reader.lastLimit)
	})

	t.Run("oversized limit is clamped", func(t *testing.T) {
		rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/recent?limit=999999", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, services.MaxRecentLimit, parts.reader.lastLimit)
	})
}

func TestStatsHandler(t *testing.T) {
	parts := setupTestServer(t)
	parts.reader.count = 42
	ctx := context.Background()

	require.NoError(t, parts.broker.Enqueue(ctx, "llm_events_queue", `{"n":1}`))
	require.NoError(t, parts.broker.Enqueue(ctx, "llm_events_queue", `{"n":2}`))
	require.NoError(t, parts.broker.Enqueue(ctx, "llm_events_dlq", `{"event":"x"}`))

	rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.PipelineStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.QueueLength)
	assert.Equal(t, int64(1), resp.DLQLength)
	assert.Equal(t, int64(42), resp.TotalEventsStored)
	assert.Equal(t, int64(2), resp.ProcessingLag)
	assert.Equal(t, parts.server.settings.DefaultTenantID, resp.TenantID)

	// The embedded queue stats flatten into the top-level object.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "queue_length")
	assert.Contains(t, raw, "queue_name")
	assert.NotContains(t, raw, "QueueStats")
}

func TestQueueStatsHandler(t *testing.T) {
	parts := setupTestServer(t)
	ctx := context.Background()

	require.NoError(t, parts.broker.Enqueue(ctx, "llm_events_queue", `{"n":1}`))

	rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/queue/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp services.QueueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.QueueLength)
	assert.Equal(t, int64(0), resp.DLQLength)
	assert.Equal(t, "llm_events_queue", resp.QueueName)
	assert.Equal(t, "llm_events_dlq", resp.DLQName)
}

func TestStatsHandlerBrokerDown(t *testing.T) {
	parts := setupTestServer(t)
	parts.redis.Close()

	rec := doRequest(t, parts.server, http.MethodGet, "/api/v1/events/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
