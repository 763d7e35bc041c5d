package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHandleRoot(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Server is up and running"}`, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{"no database", nil, http.StatusOK},
		{"database reachable", fakePinger{}, http.StatusOK},
		{"database unreachable", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, "1.2.3")

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := h.HandleHealth(c)
			if tt.wantStatus == http.StatusOK {
				require.NoError(t, err)
				assert.JSONEq(t, `{"status":"ok","version":"1.2.3"}`, rec.Body.String())
				return
			}

			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, "connection refused", apiErr.Details)
		})
	}
}

func TestHandleHealth_Routed(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}
