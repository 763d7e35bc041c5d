// handlers_trips.go - REST trip query handlers
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/taxi-insights/backend/internal/graph"
	"github.com/taxi-insights/backend/internal/trips"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is negotiated through the Accept header.
const MIMEApplicationMsgpack = "application/msgpack"

// TripHandlerImpl implements the TripHandler interface
type TripHandlerImpl struct {
	repo *trips.Repository
}

// NewTripHandler creates a new trip handler
func NewTripHandler(repo *trips.Repository) TripHandler {
	return &TripHandlerImpl{repo: repo}
}

// HandleListTrips returns trips filtered by pickup time range and exact
// pickup coordinates
func (h *TripHandlerImpl) HandleListTrips(c echo.Context) error {
	filter, err := parseTripFilter(c)
	if err != nil {
		return err
	}

	q, err := querierFrom(c)
	if err != nil {
		return err
	}

	list, err := h.repo.ListTrips(c.Request().Context(), q, filter)
	if err != nil {
		return NewInternalError("failed to query trips", err)
	}

	if wantsMsgpack(c) {
		data, err := msgpack.Marshal(list)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, list)
}

// HandleTripStats returns average duration and per-day counts
func (h *TripHandlerImpl) HandleTripStats(c echo.Context) error {
	q, err := querierFrom(c)
	if err != nil {
		return err
	}

	stats, err := h.repo.Stats(c.Request().Context(), q)
	if err != nil {
		return NewInternalError("failed to compute trip stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// parseTripFilter reads start_date, end_date, pickup_long and pickup_lat.
// Every supplied value must parse even though the date bounds only apply
// when both are present.
func parseTripFilter(c echo.Context) (trips.TripFilter, error) {
	var f trips.TripFilter

	start, err := timeParam(c, "start_date")
	if err != nil {
		return f, err
	}
	end, err := timeParam(c, "end_date")
	if err != nil {
		return f, err
	}
	if start != nil && end != nil {
		f.Start, f.End = start, end
	}

	if f.PickupLongitude, err = floatParam(c, "pickup_long"); err != nil {
		return f, err
	}
	if f.PickupLatitude, err = floatParam(c, "pickup_lat"); err != nil {
		return f, err
	}
	return f, nil
}

func timeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, ok := graph.ParseDateTime(raw)
	if !ok {
		return nil, NewValidationError(name, fmt.Errorf("%q is not an ISO-8601 timestamp", raw))
	}
	return &t, nil
}

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, NewValidationError(name, err)
	}
	return &v, nil
}

func wantsMsgpack(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEApplicationMsgpack) || strings.Contains(accept, "application/x-msgpack")
}
