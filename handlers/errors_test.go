package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"support_directory_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRespondError(t *testing.T) {
	e := echo.New()
	h := &Handler{Logger: zap.NewNop()}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"Validation", services.NewValidationError("radius must be a positive number"), http.StatusBadRequest, "validation_error", "radius must be a positive number"},
		{"Unauthenticated", services.NewUnauthenticatedError("login required"), http.StatusUnauthorized, "unauthorized", "login required"},
		{"Forbidden", services.NewForbiddenError("admin access required"), http.StatusForbidden, "forbidden", "admin access required"},
		{"NotFound", services.NewNotFoundError("case", "abc"), http.StatusNotFound, "not_found", "case abc not found"},
		{"Conflict", services.NewConflictError("already closed"), http.StatusConflict, "conflict", "already closed"},
		{"StoreHidesDetail", services.NewStoreError("find", errors.New("dial tcp 10.0.0.5:5432: refused")), http.StatusServiceUnavailable, "store_unavailable", "The service is temporarily unavailable"},
		{"PlainErrorIsStore", errors.New("boom"), http.StatusServiceUnavailable, "store_unavailable", "The service is temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.NoError(t, h.respondError(c, "test", tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)

			resp := decodeError(t, rec.Body.Bytes())
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()
	handler := HTTPErrorHandler(zap.NewNop())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	handler(echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), c)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	resp := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "rate_limited", resp.Code)
	assert.Equal(t, "slow down", resp.Error)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	handler(errors.New("unexpected"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec.Body.Bytes()).Code)
}
