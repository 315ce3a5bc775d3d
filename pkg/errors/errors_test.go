package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	base := NewNotFoundError("view v1")
	wrapped := Wrap(base, "select")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "select: view v1 not found", GetAppError(wrapped).Message)
	assert.Equal(t, "view v1 not found", base.Message)

	cause := errors.New("boom")
	internal := Wrap(cause, "render")
	assert.True(t, IsType(internal, ErrorTypeInternal))
	assert.ErrorIs(t, internal, cause)
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsUnauthorized(NewUnauthorizedError("")))
	assert.Equal(t, "unauthorized", NewUnauthorizedError("").Message)
	assert.True(t, IsUnavailable(NewUnavailableError("graph database")))
	assert.True(t, IsConflict(NewConflictError("view already exists")))
	assert.True(t, IsValidation(Wrap(NewValidationError("bad"), "bind")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, http.StatusGatewayTimeout, NewTimeoutError("render").HTTPStatus)
}

func TestErrorHandler_AppError(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/views/x", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-1")

	h.Handle(rec, req, Wrap(NewNotFoundError("view x"), "get"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Type)
	assert.Equal(t, "get: view x not found", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
	assert.Nil(t, body.Details)
}

func TestErrorHandler_PlainErrorHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	NewErrorHandler(zap.NewNop(), false).Handle(rec, req, errors.New("secret detail"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")

	rec = httptest.NewRecorder()
	NewErrorHandler(zap.NewNop(), true).Handle(rec, req, errors.New("secret detail"))
	assert.Contains(t, rec.Body.String(), "secret detail")
	assert.Contains(t, rec.Body.String(), "stackTrace")
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	cases := map[*AppError]int{
		NewValidationError("bad"):         http.StatusBadRequest,
		NewUnauthorizedError(""):          http.StatusUnauthorized,
		NewRateLimitError(10, "minute"):   http.StatusTooManyRequests,
		NewTimeoutError("render"):         http.StatusGatewayTimeout,
		NewUnavailableError("graph"):      http.StatusServiceUnavailable,
		NewConflictError("already open"):  http.StatusConflict,
	}
	h := NewErrorHandler(zap.NewNop(), false)
	for appErr, status := range cases {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), appErr)
		assert.Equal(t, status, rec.Code, appErr.Message)
	}
}

func TestErrorHandler_Middleware(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTooManyRequests, "slow down")
	assert.Contains(t, rec.Body.String(), `"type":"RATE_LIMIT"`)
}
