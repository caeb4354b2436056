package api

import (
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/llmscope/llmscope/pkg/models"
	"github.com/llmscope/llmscope/pkg/services"
)

// ingestHandler handles POST /api/v1/events/ingest.
// Acknowledges at enqueue time; the worker makes the event durable later.
func (s *Server) ingestHandler(c *echo.Context) error {
	// 1. Bind HTTP request
	var sub models.EventSubmission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// 2. Normalize and enqueue
	eventID, err := s.ingestService.Ingest(c.Request().Context(), &sub)
	if err != nil {
		return mapServiceError(err)
	}

	// 3. Return the assigned ID
	return c.JSON(http.StatusOK, &IngestResponse{
		Status:  "accepted",
		EventID: eventID,
	})
}

// ingestBatchHandler handles POST /api/v1/events/ingest/batch.
// A batch is accepted or rejected whole: any invalid event fails the
// request before anything is enqueued.
func (s *Server) ingestBatchHandler(c *echo.Context) error {
	// 1. Bind HTTP request
	var req BatchIngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// 2. Enforce batch size limits
	if len(req.Events) == 0 || len(req.Events) > services.MaxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("events must contain between 1 and %d items", services.MaxBatchSize))
	}

	// 3. Normalize and enqueue all
	eventIDs, err := s.ingestService.IngestBatch(c.Request().Context(), req.Events)
	if err != nil {
		return mapServiceError(err)
	}

	// 4. Return the assigned IDs
	return c.JSON(http.StatusOK, &BatchIngestResponse{
		Status:   "accepted",
		Count:    len(eventIDs),
		EventIDs: eventIDs,
	})
}
