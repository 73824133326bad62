package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceeda/internal/shared/testutil"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"column not found", fmt.Errorf("lookup Price: %w", ErrColumnNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"invalid window", fmt.Errorf("window 0: %w", ErrInvalidWindow), http.StatusBadRequest, "INVALID_PARAMETER"},
		{"non positive", ErrNonPositive, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"insufficient columns", ErrInsufficientColumns, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"api error passthrough", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromDomain(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"column not found", fmt.Errorf("moving average: %w", ErrColumnNotFound), http.StatusNotFound, TypeColumnNotFound},
		{"date not found", ErrDateNotFound, http.StatusNotFound, TypeDateNotFound},
		{"invalid window", ErrInvalidWindow, http.StatusBadRequest, TypeInvalidWindow},
		{"missing value", ErrMissingValue, http.StatusUnprocessableEntity, TypePrecondition},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"validation api error", NewValidationErrors([]ValidationError{{Field: "window", Message: "min"}}), http.StatusBadRequest, TypeValidation},
		{"generic", errors.New("unexpected"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/correlation", nil)
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/correlation", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.True(t, logs.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), false)
	rec := httptest.NewRecorder()
	handler.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("error_code", "NOT_FOUND")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "NOT_FOUND", body["error_code"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"])
	assert.NotContains(t, body, "detail")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, InvalidParameter("window", errors.New("must be positive")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.ErrorCode)
}
