// handlers_graphql.go - GraphQL execution and explorer handlers
package api

import (
	"encoding/json"
	"net/http"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/labstack/echo/v4"
	"github.com/taxi-insights/backend/internal/graph"
)

// GraphQLHandlerImpl implements the GraphQLHandler interface
type GraphQLHandlerImpl struct {
	schema   *graph.Schema
	explorer http.Handler
}

// NewGraphQLHandler creates a new GraphQL handler
func NewGraphQLHandler(schema *graph.Schema) GraphQLHandler {
	return &GraphQLHandlerImpl{
		schema:   schema,
		explorer: playground.Handler("Taxi Trip API", "/graphql"),
	}
}

// HandleQuery executes a GraphQL request. Requests rejected before
// execution (syntax, validation, variable coercion) answer 400; anything
// that produced data answers 200 with field errors in the envelope.
func (h *GraphQLHandlerImpl) HandleQuery(c echo.Context) error {
	var req graph.Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"errors": []map[string]string{{"message": "request body must be a JSON object: " + err.Error()}},
		})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"errors": []map[string]string{{"message": "query is required"}},
		})
	}

	res := h.schema.Execute(c.Request().Context(), req)
	status := http.StatusOK
	if graph.FailedBeforeExecution(res) {
		status = http.StatusBadRequest
	}
	return c.JSON(status, res)
}

// HandleExplorer serves the interactive GraphiQL page
func (h *GraphQLHandlerImpl) HandleExplorer(c echo.Context) error {
	h.explorer.ServeHTTP(c.Response(), c.Request())
	return nil
}
