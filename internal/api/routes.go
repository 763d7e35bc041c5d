// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/taxi-insights/backend/internal/graph"
	"github.com/taxi-insights/backend/internal/trips"
	"github.com/taxi-insights/backend/internal/web"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	DB      *sql.DB
	Repo    *trips.Repository
	Intake  IntakeService
	Graph   *graph.Schema
	Version string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Trips   TripHandler
	Intake  IntakeHandler
	GraphQL GraphQLHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	var db Pinger
	if deps.DB != nil {
		db = deps.DB
	}
	return &Handlers{
		Health:  NewHealthHandler(db, deps.Version),
		Trips:   NewTripHandler(deps.Repo),
		Intake:  NewIntakeHandler(deps.Intake),
		GraphQL: NewGraphQLHandler(deps.Graph),
	}
}

// RegisterRoutes registers all API routes with the Echo instance. Routes
// that read the database run inside a per-request connection from db.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, db *sql.DB) {
	session := DBSession(db)

	// Health check
	e.GET("/", handlers.Health.HandleRoot)
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Trip queries
	e.GET("/trips", handlers.Trips.HandleListTrips, session)
	e.GET("/trips/stats", handlers.Trips.HandleTripStats, session)

	// ETL intake
	e.POST("/upload", handlers.Intake.HandleUpload)
	e.POST("/trigger_job", handlers.Intake.HandleTriggerJob)

	// GraphQL
	e.GET("/graphql", handlers.GraphQL.HandleExplorer)
	e.POST("/graphql", handlers.GraphQL.HandleQuery, session)

	// API docs
	web.RegisterDocsRoutes(e)
}
