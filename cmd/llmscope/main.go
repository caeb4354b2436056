// LLMScope API server: accepts LLM call events over HTTP, queues them on
// the broker, and serves the read, stats, and live WebSocket endpoints.
// With WORKER_ENABLED (the default) it also runs the drain worker pool
// in-process, so a single binary is a complete deployment.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/llmscope/llmscope/pkg/api"
	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/database"
	"github.com/llmscope/llmscope/pkg/events"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/queue"
	"github.com/llmscope/llmscope/pkg/services"
	"github.com/llmscope/llmscope/pkg/version"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	slog.Info("Starting LLMScope", "version", version.Full())

	ctx := context.Background()

	// 1. Load configuration
	settings, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Connect the event store (applies pending migrations)
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	slog.Info("Connected to event store")

	// 3. Connect the broker
	brokerClient, err := broker.New(settings.BrokerURL)
	if err != nil {
		slog.Error("Failed to create broker client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := brokerClient.Close(); err != nil {
			slog.Error("Error closing broker client", "error", err)
		}
	}()

	if err := brokerClient.Ping(ctx); err != nil {
		slog.Error("Failed to reach broker", "url", settings.BrokerURL, "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to broker", "queue", settings.QueueName)

	// 4. Verify the default scope is seeded
	scope := models.Scope{TenantID: settings.DefaultTenantID, ProjectID: settings.DefaultProjectID}
	seeded, err := dbClient.ScopeSeeded(ctx, scope)
	if err != nil {
		slog.Warn("Could not verify default scope", "error", err)
	} else if !seeded {
		slog.Warn("Default tenant not found. Run database migrations.")
	}

	// 5. Initialize domain services
	ingestService := services.NewIngestService(brokerClient, settings.QueueName, scope)
	statsService := services.NewStatsService(brokerClient, dbClient, settings.QueueName, settings.DLQName, scope)
	slog.Info("Services initialized")

	// 6. Initialize the live update bus: WebSocket fan-out plus the broker
	// subscription that carries ticks from standalone workers.
	connManager := events.NewConnectionManager(10 * time.Second)

	listener := events.NewUpdateListener(settings.BrokerURL, connManager)
	if err := listener.Start(ctx); err != nil {
		slog.Error("Failed to start update listener", "error", err)
		os.Exit(1)
	}
	defer listener.Stop()

	publisher := events.NewTickPublisher(brokerClient)

	// 7. Start the worker pool (before the HTTP server, so queued events
	// drain as soon as ingest opens)
	var workerPool *queue.WorkerPool
	if settings.WorkerEnabled {
		workerPool = queue.NewWorkerPool(brokerClient, dbClient, publisher, settings.QueueConfig())
		if err := workerPool.Start(ctx); err != nil {
			slog.Error("Failed to start worker pool", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("In-process workers disabled, expecting standalone worker processes")
	}

	// 8. Start the HTTP server (non-blocking)
	httpServer := api.NewServer(settings, dbClient, brokerClient, ingestService, statsService, workerPool, connManager)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + settings.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("LLMScope started successfully",
		"http_port", settings.HTTPPort,
		"workers_enabled", settings.WorkerEnabled)

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: stop the workers first so the in-flight batch
	// reaches the store, then close the HTTP server.
	if workerPool != nil {
		workerShutdownCtx, workerCancel := context.WithTimeout(ctx, settings.GracefulShutdownTimeout)

		done := make(chan struct{})
		go func() {
			workerPool.Stop()
			close(done)
		}()

		select {
		case <-done:
			slog.Info("Worker pool stopped gracefully")
		case <-workerShutdownCtx.Done():
			slog.Warn("Shutdown timeout exceeded, queued events remain for the next worker")
		}
		workerCancel()
	}

	// Stop HTTP server with its own timeout budget
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
