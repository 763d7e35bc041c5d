// middleware.go - Request-scoped database session and common middleware
package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/taxi-insights/backend/internal/metrics"
	"github.com/taxi-insights/backend/internal/trips"
)

// DBSession checks one connection out of the pool for the request, exposes
// it through trips.QuerierFrom and returns it once the handler is done,
// whatever the outcome.
func DBSession(db *sql.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			conn, err := db.Conn(req.Context())
			if err != nil {
				return NewServiceUnavailableError("database unavailable", err)
			}
			defer conn.Close()

			c.SetRequest(req.WithContext(trips.WithQuerier(req.Context(), conn)))
			return next(c)
		}
	}
}

// querierFrom returns the request's database session.
func querierFrom(c echo.Context) (trips.Querier, error) {
	q, ok := trips.QuerierFrom(c.Request().Context())
	if !ok {
		return nil, NewInternalError("no database session for request", nil)
	}
	return q, nil
}

// MiddlewareOptions configures SetupMiddleware.
type MiddlewareOptions struct {
	RequestLogging bool
	RequestTimeout time.Duration
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   []string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestID())

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !opts.RequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(metrics.Middleware())

	if opts.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: opts.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				// uploads are bounded by the store and queue timeouts
				path := c.Request().URL.Path
				return path == "/upload" || strings.HasPrefix(path, "/apidocs")
			},
			ErrorMessage: `{"error":"Request timeout - query took too long"}`,
		}))
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/metrics"
		},
	}))

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
