// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/taxi-insights/backend/internal/intake"
)

// APIError represents a structured API error response. Only Message reaches
// the client, as {"error": "..."}; Code and Details go to the log.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"-"`
	Message string `json:"error"`
	Details string `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StatusCode exposes the HTTP status to middleware.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for a malformed query parameter
func NewValidationError(field string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("invalid value for %s", field),
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 error. The client sees the cause's text
// when there is one.
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Message = cause.Error()
		err.Details = message
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// fromIntakeError maps intake failures onto HTTP errors.
func fromIntakeError(err error) *APIError {
	var upErr *intake.UpstreamError
	switch {
	case errors.Is(err, intake.ErrEmptyFilename):
		return NewBadRequestError("No file selected", err)
	case errors.Is(err, intake.ErrUnusableFilename):
		return NewBadRequestError("Filename contains no usable characters", err)
	case errors.Is(err, intake.ErrMissingKey):
		return NewBadRequestError("s3_key is required", err)
	case errors.Is(err, intake.ErrObjectNotFound):
		apiErr := NewNotFoundError("object", "")
		apiErr.Message = err.Error()
		return apiErr
	case errors.As(err, &upErr):
		return NewInternalError(upErr.Stage+" failure", upErr.Err)
	default:
		return NewInternalError("intake failure", err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
		if httpErr.Internal != nil {
			apiErr.Details = httpErr.Internal.Error()
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		c.Logger().Errorj(log.JSON{
			"event":   "request_failed",
			"method":  c.Request().Method,
			"path":    c.Request().URL.Path,
			"status":  apiErr.Status,
			"code":    apiErr.Code,
			"error":   apiErr.Message,
			"details": apiErr.Details,
		})
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}
