package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// rootHandler handles GET /.
func (s *Server) rootHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &RootResponse{
		Message: "LLMScope API",
		Version: version.GitCommit,
	})
}

// healthHandler handles GET /health.
// Checks the pipeline's own dependencies: the event store (including the
// seeded default scope), the broker, and the in-process worker pool when
// one is running. Store or broker failure is unhealthy (503); a degraded
// worker pool alone stays 200 because ingest still works.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if _, err := s.store.Health(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}

		scope := models.Scope{
			TenantID:  s.settings.DefaultTenantID,
			ProjectID: s.settings.DefaultProjectID,
		}
		seeded, err := s.store.ScopeSeeded(reqCtx, scope)
		switch {
		case err != nil:
			status = healthStatusUnhealthy
			checks["default_scope"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		case !seeded:
			status = healthStatusUnhealthy
			checks["default_scope"] = HealthCheck{
				Status:  healthStatusUnhealthy,
				Message: "Default tenant not found. Run database migrations.",
			}
		default:
			checks["default_scope"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	if err := s.broker.Ping(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["broker"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["broker"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.workerPool != nil {
		poolHealth := s.workerPool.Health()
		if poolHealth != nil && !poolHealth.IsHealthy {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			msg := healthStatusUnhealthy
			if poolHealth.BrokerError != "" {
				msg = poolHealth.BrokerError
			}
			checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded, Message: msg}
		} else {
			checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
