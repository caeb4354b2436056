package api

import (
	"crypto/subtle"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// apiKeyAuth returns middleware that enforces the static API key on
// every request. The header name is configurable; comparison is
// constant-time.
func (s *Server) apiKeyAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			key := c.Request().Header.Get(s.settings.APIKeyHeader)
			if key == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "API key required")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.settings.APIKey)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
			}
			return next(c)
		}
	}
}
