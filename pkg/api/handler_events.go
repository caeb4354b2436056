package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

// recentEventsHandler handles GET /api/v1/events/recent.
func (s *Server) recentEventsHandler(c *echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be an integer")
		}
		limit = n
	}

	result, err := s.statsService.RecentEvents(c.Request().Context(), limit)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, &RecentEventsResponse{
		Events: result,
		Count:  len(result),
	})
}

// statsHandler handles GET /api/v1/events/stats.
func (s *Server) statsHandler(c *echo.Context) error {
	stats, err := s.statsService.PipelineStats(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// queueStatsHandler handles GET /api/v1/events/queue/stats.
func (s *Server) queueStatsHandler(c *echo.Context) error {
	stats, err := s.statsService.QueueStats(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, stats)
}
