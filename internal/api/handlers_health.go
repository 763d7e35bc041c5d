// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const pingTimeout = 2 * time.Second

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	db      Pinger
	version string
}

// NewHealthHandler creates a new health handler. db may be nil, in which
// case /health only reports that the process is up.
func NewHealthHandler(db Pinger, version string) HealthHandler {
	return &HealthHandlerImpl{
		db:      db,
		version: version,
	}
}

// HandleRoot answers the home route
func (h *HealthHandlerImpl) HandleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Server is up and running",
	})
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			return NewServiceUnavailableError("database unreachable", err)
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}
