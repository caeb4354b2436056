// LLMScope drain worker: pops queued events from the broker and writes
// them to the event store. Any number of worker processes may run against
// the same broker; live-update ticks for stored batches are published on
// the broker so API processes can fan them out to WebSocket viewers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/database"
	"github.com/llmscope/llmscope/pkg/events"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/queue"
	"github.com/llmscope/llmscope/pkg/version"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	slog.Info("Starting LLMScope worker", "version", version.Full())

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

	// 4. Verify the default scope is seeded. A false result means the scope
	// override points at tenant or project rows that were never created;
	// surface that before processing starts.
	scope := models.Scope{TenantID: settings.DefaultTenantID, ProjectID: settings.DefaultProjectID}
	seeded, err := dbClient.ScopeSeeded(ctx, scope)
	if err != nil {
		slog.Warn("Could not verify default scope", "error", err)
	} else if !seeded {
		slog.Warn("Default tenant not found. Run database migrations.")
	}

	// 5. Start the worker pool
	publisher := events.NewTickPublisher(brokerClient)
	workerPool := queue.NewWorkerPool(brokerClient, dbClient, publisher, settings.QueueConfig())
	if err := workerPool.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	slog.Info("LLMScope worker started successfully", "queue", settings.QueueName)

	// 6. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig)

	// 7. Graceful shutdown: the in-flight batch completes before exit
	shutdownCtx, cancel := context.WithTimeout(ctx, settings.GracefulShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		workerPool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded, queued events remain for the next worker")
	}

	slog.Info("Shutdown complete")
}
