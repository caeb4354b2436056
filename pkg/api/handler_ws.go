package api

import (
	"net/http"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler handles GET /api/v1/ws/events: upgrades to WebSocket and
// delegates to the ConnectionManager, which blocks until the socket
// closes.
func (s *Server) wsHandler(c *echo.Context) error {
	if s.connManager == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "WebSocket not available")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// All origins accepted; callers authenticate with the API key.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	s.connManager.HandleConnection(c.Request().Context(), conn)
	return nil
}
