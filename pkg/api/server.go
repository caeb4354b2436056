// Package api exposes the HTTP surface: event ingest, read endpoints,
// the live WebSocket view, health, and Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/llmscope/llmscope/pkg/broker"
	"github.com/llmscope/llmscope/pkg/config"
	"github.com/llmscope/llmscope/pkg/database"
	"github.com/llmscope/llmscope/pkg/events"
	"github.com/llmscope/llmscope/pkg/metrics"
	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/queue"
	"github.com/llmscope/llmscope/pkg/services"
)

// Storage is the subset of database.Client the server touches directly.
// Event reads go through the stats service instead.
type Storage interface {
	Health(ctx context.Context) (*database.HealthStatus, error)
	ScopeSeeded(ctx context.Context, scope models.Scope) (bool, error)
}

// Server is the HTTP API server.
type Server struct {
	settings      *config.Settings
	store         Storage
	broker        *broker.Client
	ingestService *services.IngestService
	statsService  *services.StatsService
	workerPool    *queue.WorkerPool
	connManager   *events.ConnectionManager
	echo          *echo.Echo
	httpServer    *http.Server
}

// NewServer creates the API server and registers all routes.
// workerPool may be nil (workers run in a separate process).
// connManager may be nil (live WebSocket view disabled).
func NewServer(
	settings *config.Settings,
	store Storage,
	broker *broker.Client,
	ingestService *services.IngestService,
	statsService *services.StatsService,
	workerPool *queue.WorkerPool,
	connManager *events.ConnectionManager,
) *Server {
	s := &Server{
		settings:      settings,
		store:         store,
		broker:        broker,
		ingestService: ingestService,
		statsService:  statsService,
		workerPool:    workerPool,
		connManager:   connManager,
		echo:          echo.New(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers middleware and all endpoints. Unauthenticated
// routes are the operational ones; everything under /api/v1 requires the
// API key.
func (s *Server) setupRoutes() {
	s.echo.Use(securityHeaders())
	s.echo.Use(requestLogger())

	s.echo.GET("/", s.rootHandler)
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/metrics", s.metricsHandler())

	g := s.echo.Group("/api/v1", s.apiKeyAuth())
	g.POST("/events/ingest", s.ingestHandler)
	g.POST("/events/ingest/batch", s.ingestBatchHandler)
	g.GET("/events/recent", s.recentEventsHandler)
	g.GET("/events/stats", s.statsHandler)
	g.GET("/events/queue/stats", s.queueStatsHandler)
	g.GET("/ws/events", s.wsHandler)
}

// metricsHandler adapts the Prometheus exposition handler to echo.
func (s *Server) metricsHandler() echo.HandlerFunc {
	h := metrics.Handler()
	return func(c *echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}

// Echo returns the underlying router, used by tests to drive requests
// through the full middleware chain.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
