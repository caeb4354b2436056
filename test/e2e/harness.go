// Package e2e provides end-to-end test infrastructure for the event
// pipeline: a real HTTP server, broker, worker pool, live update bus, and
// event store wired together the way the binaries wire them.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/llmscope/llmscope/pkg/api"
	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/database"
	"github.com/llmscope/llmscope/pkg/events"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/queue"
	"github.com/llmscope/llmscope/pkg/services"
	"github.com/llmscope/llmscope/test/util"
)

// testApp boots a complete pipeline instance for e2e testing. The broker
// is a miniredis; the event store is a TimescaleDB testcontainer.
type testApp struct {
	Settings *config.Settings
	Store    *database.Client
	Broker   *broker.Client
	Redis    *miniredis.Miniredis

	ConnManager *events.ConnectionManager
	WorkerPool  *queue.WorkerPool
	Server      *api.Server

	BaseURL string
	WSURL   string
}

// startTestApp wires every component against real infrastructure and
// registers cleanups in reverse dependency order.
func startTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	store := util.SetupTestStore(t)

	mr := miniredis.RunT(t)
	brokerURL := "redis://" + mr.Addr()

	brokerClient, err := broker.New(brokerURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = brokerClient.Close() })

	settings := &config.Settings{
		BrokerURL:               brokerURL,
		QueueName:               "llm_events_queue",
		DLQName:                 "llm_events_dlq",
		QueueBatchSize:          100,
		WorkerPollInterval:      20 * time.Millisecond,
		WorkerMaxRetries:        3,
		WorkerRetryBackoffBase:  2.0,
		WorkerEnabled:           true,
		APIKey:                  "e2e-key",
		APIKeyHeader:            "X-API-Key",
		HTTPPort:                "0",
		GracefulShutdownTimeout: 5 * time.Second,
		DefaultTenantID:         config.DefaultTenantID(),
		DefaultProjectID:        config.DefaultProjectID(),
	}
	scope := models.Scope{TenantID: settings.DefaultTenantID, ProjectID: settings.DefaultProjectID}

	ingestService := services.NewIngestService(brokerClient, settings.QueueName, scope)
	statsService := services.NewStatsService(brokerClient, store, settings.QueueName, settings.DLQName, scope)

	connManager := events.NewConnectionManager(5 * time.Second)
	listener := events.NewUpdateListener(settings.BrokerURL, connManager)
	require.NoError(t, listener.Start(ctx))
	t.Cleanup(listener.Stop)

	publisher := events.NewTickPublisher(brokerClient)

	pool := queue.NewWorkerPool(brokerClient, store, publisher, settings.QueueConfig())
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(pool.Stop)

	server := api.NewServer(settings, store, brokerClient, ingestService, statsService, pool, connManager)

	httpServer := httptest.NewServer(server.Echo())
	t.Cleanup(httpServer.Close)

	return &testApp{
		Settings:    settings,
		Store:       store,
		Broker:      brokerClient,
		Redis:       mr,
		ConnManager: connManager,
		WorkerPool:  pool,
		Server:      server,
		BaseURL:     httpServer.URL,
		WSURL:       "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/v1/ws/events",
	}
}

// scope returns the (tenant, project) pair every ingested event lands in.
func (app *testApp) scope() models.Scope {
	return models.Scope{
		TenantID:  app.Settings.DefaultTenantID,
		ProjectID: app.Settings.DefaultProjectID,
	}
}

// post issues an authenticated JSON POST against the test server.
func (app *testApp) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, app.BaseURL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(app.Settings.APIKeyHeader, app.Settings.APIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// get issues an authenticated GET against the test server.
func (app *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, app.BaseURL+path, nil)
	require.NoError(t, err)
	req.Header.Set(app.Settings.APIKeyHeader, app.Settings.APIKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeJSON decodes a response body and closes it.
func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}
