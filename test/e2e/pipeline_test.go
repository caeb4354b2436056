package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/events"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/services"
)

// waitForStoredCount polls the store until the scope holds exactly n events.
func waitForStoredCount(t *testing.T, app *testApp, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		count, err := app.Store.CountEvents(context.Background(), app.scope())
		return err == nil && count == n
	}, 10*time.Second, 50*time.Millisecond, "expected %d stored events", n)
}

func TestPipelineSingleEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	app := startTestApp(t)

	ws := connectWS(t, app)
	ws.waitForFrame(t, events.TypeConnected, 5*time.Second)

	resp := app.post(t, "/api/v1/events/ingest",
		`{"model":"gpt-4","provider":"openai","tokens_prompt":1000,"tokens_completion":500,"latency_ms":1200}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ingest struct {
		Status  string    `json:"status"`
		EventID uuid.UUID `json:"event_id"`
	}
	decodeJSON(t, resp, &ingest)
	assert.Equal(t, "accepted", ingest.Status)
	require.NotEqual(t, uuid.Nil, ingest.EventID)

	waitForStoredCount(t, app, 1)

	resp = app.get(t, "/api/v1/events/recent?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recent struct {
		Events []models.Event `json:"events"`
		Count  int            `json:"count"`
	}
	decodeJSON(t, resp, &recent)
	require.Equal(t, 1, recent.Count)

	got := recent.Events[0]
	assert.Equal(t, ingest.EventID, got.ID)
	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, 1500, got.TokensTotal)
	assert.Equal(t, "0.060000", got.CostUSD.StringFixed(6))
	assert.Equal(t, app.scope().TenantID, got.TenantID)
	assert.Equal(t, app.scope().ProjectID, got.ProjectID)

	// The stored batch produces a live tick for connected viewers.
	ws.waitForFrame(t, events.TypeEventUpdate, 5*time.Second)

	resp = app.get(t, "/api/v1/events/queue/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var qs services.QueueStats
	decodeJSON(t, resp, &qs)
	assert.Equal(t, int64(0), qs.QueueLength)
	assert.Equal(t, int64(0), qs.DLQLength)
}

func TestPipelineBatchIngest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	app := startTestApp(t)

	items := make([]string, 3)
	for i := range items {
		items[i] = fmt.Sprintf(
			`{"model":"gpt-4","provider":"openai","tokens_prompt":%d,"tokens_completion":50,"latency_ms":800}`,
			100+i)
	}
	body := fmt.Sprintf(`{"events":[%s]}`, strings.Join(items, ","))

	resp := app.post(t, "/api/v1/events/ingest/batch", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var batch struct {
		Status   string      `json:"status"`
		Count    int         `json:"count"`
		EventIDs []uuid.UUID `json:"event_ids"`
	}
	decodeJSON(t, resp, &batch)
	assert.Equal(t, "accepted", batch.Status)
	require.Equal(t, 3, batch.Count)
	require.Len(t, batch.EventIDs, 3)

	waitForStoredCount(t, app, 3)

	resp = app.get(t, "/api/v1/events/recent?limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recent struct {
		Events []models.Event `json:"events"`
		Count  int            `json:"count"`
	}
	decodeJSON(t, resp, &recent)
	require.Equal(t, 3, recent.Count)

	storedIDs := make([]uuid.UUID, 0, 3)
	for _, e := range recent.Events {
		storedIDs = append(storedIDs, e.ID)
	}
	assert.ElementsMatch(t, batch.EventIDs, storedIDs)

	resp = app.get(t, "/api/v1/events/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats services.PipelineStats
	decodeJSON(t, resp, &stats)
	assert.Equal(t, int64(3), stats.TotalEventsStored)
	assert.Equal(t, int64(0), stats.QueueLength)
	assert.Equal(t, int64(0), stats.ProcessingLag)
	assert.Equal(t, app.scope().TenantID, stats.TenantID)
}

func TestHealthEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	app := startTestApp(t)

	resp, err := http.Get(app.BaseURL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"checks"`
	}
	decodeJSON(t, resp, &health)

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["database"].Status)
	assert.Equal(t, "healthy", health.Checks["default_scope"].Status)
	assert.Equal(t, "healthy", health.Checks["broker"].Status)
	assert.Equal(t, "healthy", health.Checks["worker_pool"].Status)
}
