package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardash/internal/shared/testutil"
	"cardash/pkg/contracts/domain"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline exceeded", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"wrapped cancel", fmt.Errorf("render: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout},
		{"api validation", ErrValidation("top", "must be positive"), http.StatusBadRequest, TypeValidation},
		{"api brand", BrandNotFoundError("Tesla"), http.StatusNotFound, TypeBrandNotFound},
		{"api view", ErrViewNotFound, http.StatusNotFound, TypeViewNotFound},
		{"api data unavailable", DataUnavailableError(fmt.Errorf("missing")), http.StatusServiceUnavailable, TypeDataUnavailable},
		{"api render failed", ErrRenderFailed, http.StatusInternalServerError, TypeRenderFailed},
		{"app storage", NewStorageError("read x.csv", fmt.Errorf("missing")), http.StatusServiceUnavailable, TypeDataUnavailable},
		{"app validation", NewAppValidationError("bad"), http.StatusBadRequest, TypeValidation},
		{"app not found", NewNotFoundError("file x.csv"), http.StatusNotFound, TypeNotFound},
		{"app config", NewConfigError("bad port", nil), http.StatusInternalServerError, TypeInternal},
		{"unknown view", fmt.Errorf("%w: %q", domain.ErrUnknownView, "totals"), http.StatusNotFound, TypeViewNotFound},
		{"brand missing", domain.ErrBrandMissing, http.StatusBadRequest, TypeValidation},
		{"string not found", fmt.Errorf("record not found"), http.StatusNotFound, TypeNotFound},
		{"rate limit", fmt.Errorf("rate limit hit"), http.StatusTooManyRequests, TypeRateLimit},
		{"generic", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			r := httptest.NewRequest(http.MethodGet, "/api/v1/views/overview", nil)
			w := httptest.NewRecorder()
			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/views/overview", body["instance"])
			assert.NotContains(t, body, "stack")

			testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
			testutil.AssertLogAttr(t, logs, "component", "error_handler")
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))

	body := decodeProblem(t, w)
	assert.NotEmpty(t, body["stack"])
}

func TestErrorHandler_APIErrorDetails(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	r := httptest.NewRequest(http.MethodGet, "/brands/tesla", nil)
	problem := handler.ErrorToProblem(BrandNotFoundError("Tesla"), r)

	assert.Equal(t, "BRAND_NOT_FOUND", problem.Extensions["error_code"])
	assert.Equal(t, "Tesla", problem.Extensions["details"])
	assert.Equal(t, http.StatusText(http.StatusNotFound), problem.Title)
}

func TestErrorHandler_Recoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	var next http.Handler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("renderer exploded")
	})
	next = middleware.RequestID(handler.Recoverer(next))

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		next.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotEmpty(t, body["trace_id"])
	assert.NotContains(t, body, "panic")
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/brands", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}

func TestErrorHandler_RecovererRepanicsAbort(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	next := NewErrorHandler(logger, false).Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		next.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
