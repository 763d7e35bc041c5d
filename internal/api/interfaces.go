// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/taxi-insights/backend/internal/models"
)

// HealthHandler handles liveness operations
type HealthHandler interface {
	HandleRoot(c echo.Context) error
	HandleHealth(c echo.Context) error
}

// TripHandler handles REST trip queries
type TripHandler interface {
	HandleListTrips(c echo.Context) error
	HandleTripStats(c echo.Context) error
}

// IntakeHandler handles file upload and job trigger operations
type IntakeHandler interface {
	HandleUpload(c echo.Context) error
	HandleTriggerJob(c echo.Context) error
}

// GraphQLHandler handles GraphQL execution and the explorer page
type GraphQLHandler interface {
	HandleQuery(c echo.Context) error
	HandleExplorer(c echo.Context) error
}

// IntakeService stores uploads and queues ETL jobs.
// This allows mocking in tests
type IntakeService interface {
	Upload(ctx context.Context, filename string, body io.Reader, size int64) (*models.JobReceipt, error)
	Trigger(ctx context.Context, key string) (*models.JobReceipt, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}
