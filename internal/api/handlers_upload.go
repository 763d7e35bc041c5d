// handlers_upload.go - File intake and ETL trigger handlers
package api

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// IntakeHandlerImpl implements the IntakeHandler interface
type IntakeHandlerImpl struct {
	intake IntakeService
}

// NewIntakeHandler creates a new intake handler instance
func NewIntakeHandler(svc IntakeService) IntakeHandler {
	return &IntakeHandlerImpl{intake: svc}
}

// HandleUpload accepts a multipart file, stores it and queues an ETL job
func (h *IntakeHandlerImpl) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		// a part sent with an empty filename is parsed as a plain value
		if form, ferr := c.MultipartForm(); ferr == nil {
			if _, ok := form.Value["file"]; ok {
				return NewBadRequestError("No file selected", err)
			}
		}
		return NewBadRequestError("No file part in the request", err)
	}
	if file.Filename == "" {
		return NewBadRequestError("No file selected", nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	receipt, err := h.intake.Upload(c.Request().Context(), file.Filename, src, file.Size)
	if err != nil {
		return fromIntakeError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}

// triggerJobRequest represents the body of POST /trigger_job
type triggerJobRequest struct {
	Key string `json:"s3_key"`
}

// HandleTriggerJob queues an ETL job for an object that is already stored
func (h *IntakeHandlerImpl) HandleTriggerJob(c echo.Context) error {
	var req triggerJobRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return NewBadRequestError("Request body must be a JSON object with an s3_key", err)
	}

	receipt, err := h.intake.Trigger(c.Request().Context(), req.Key)
	if err != nil {
		return fromIntakeError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}
