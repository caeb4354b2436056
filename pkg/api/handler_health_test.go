package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/queue"
)

// nopStore satisfies queue.EventStore for pool construction.
type nopStore struct{}

func (nopStore) InsertEvent(context.Context, *models.Event) error { return nil }

func getHealth(t *testing.T, s *Server) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthHandlerHealthy(t *testing.T) {
	parts := setupTestServer(t)

	code, resp := getHealth(t, parts.server)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["database"].Status)
	assert.Equal(t, "healthy", resp.Checks["default_scope"].Status)
	assert.Equal(t, "healthy", resp.Checks["broker"].Status)
	assert.NotContains(t, resp.Checks, "worker_pool", "no pool is wired in this setup")
}

func TestHealthHandlerStoreDown(t *testing.T) {
	parts := setupTestServer(t)
	parts.storage.healthErr = errors.New("connection refused")

	code, resp := getHealth(t, parts.server)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["database"].Status)
	assert.Contains(t, resp.Checks["database"].Message, "connection refused")

	// The scope check is skipped when the store is unreachable.
	assert.NotContains(t, resp.Checks, "default_scope")
}

func TestHealthHandlerScopeNotSeeded(t *testing.T) {
	parts := setupTestServer(t)
	parts.storage.seeded = false

	code, resp := getHealth(t, parts.server)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "Default tenant not found. Run database migrations.",
		resp.Checks["default_scope"].Message)
}

func TestHealthHandlerBrokerDown(t *testing.T) {
	parts := setupTestServer(t)
	parts.redis.Close()

	code, resp := getHealth(t, parts.server)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Checks["broker"].Status)
}

func TestHealthHandlerDegradedWorkerPool(t *testing.T) {
	parts := setupTestServer(t)

	// A pool that was never started has zero workers and reports
	// unhealthy; the endpoint degrades but stays 200.
	cfg := config.DefaultQueueConfig()
	parts.server.workerPool = queue.NewWorkerPool(parts.broker, nopStore{}, nil, cfg)

	code, resp := getHealth(t, parts.server)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "degraded", resp.Checks["worker_pool"].Status)
}
