package api

import (
	"fmt"
	"net/http"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"

	"github.com/llmscope/llmscope/pkg/services"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectCode int
		expectMsg  string
	}{
		{
			name:       "validation error maps to 400",
			err:        services.NewValidationError("latency_ms", "latency_ms is required"),
			expectCode: http.StatusBadRequest,
			expectMsg:  "latency_ms is required",
		},
		{
			name:       "wrapped validation error keeps its batch context",
			err:        fmt.Errorf("event 1: %w", services.NewValidationError("model", "model is required")),
			expectCode: http.StatusBadRequest,
			expectMsg:  "event 1",
		},
		{
			name:       "unknown error maps to 500",
			err:        fmt.Errorf("broker gone"),
			expectCode: http.StatusInternalServerError,
			expectMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := mapServiceError(tt.err)
			assert.IsType(t, &echo.HTTPError{}, he)
			assert.Equal(t, tt.expectCode, he.Code)
			assert.Contains(t, he.Error(), tt.expectMsg)
		})
	}
}
