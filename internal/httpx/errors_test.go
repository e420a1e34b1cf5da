package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/certsearch/internal/httpx"
)

func TestHTTPErrorImplementsError(t *testing.T) {
	t.Parallel()

	err := httpx.ErrBadRequest.WithMessage("certificate query parameter is required")
	assert.Equal(t, "certificate query parameter is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
}

func TestFromPassesHTTPErrorThrough(t *testing.T) {
	t.Parallel()

	orig := httpx.ErrBadGateway.WithDetails(map[string]any{"attempts": 3})
	got := httpx.From(orig)
	assert.Equal(t, orig, got)

	wrapped := httpx.From(errors.New("some internal detail"))
	assert.Equal(t, http.StatusInternalServerError, wrapped.Status)
	assert.NotContains(t, wrapped.Message, "internal detail",
		"arbitrary error text must not reach responses")
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) StatusCode() int { return e.code }

func TestFromHonorsStatusCodeInterface(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, httpx.From(statusErr{http.StatusNotFound}).Status)
	assert.Equal(t, http.StatusInternalServerError, httpx.From(statusErr{http.StatusTeapot}).Status)
}

func TestRenderError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	httpx.RenderError(w, httpx.ErrBadRequest.WithMessage("bad input"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad input", body["error"])
	assert.Equal(t, "bad_request", body["code"])
}

func TestJSONWithStatusNoBodyStatuses(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, httpx.JSONWithStatus(w, map[string]int{"n": 1}, http.StatusNoContent))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestJSONWithStatusZeroStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	require.NoError(t, httpx.JSONWithStatus(w, nil, 0))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	require.NoError(t, httpx.JSONWithStatus(w, map[string]int{"n": 1}, 0))
	assert.Equal(t, http.StatusOK, w.Code)
}
