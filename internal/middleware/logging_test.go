package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/middleware"
)

func TestLoggingRecordsRequest(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(logging.Config{}, &buf)

	h := middleware.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search?certificate=123", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"path":"/search"`)
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"method":"GET"`)
}

func TestLoggingSkipPaths(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(logging.Config{}, &buf)

	h := middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger:    log,
		SkipPaths: []string{"/health"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.NotEmpty(t, buf.String())
}

func TestLoggingServerErrorLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(logging.Config{}, &buf)

	h := middleware.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "request failed")
}

func TestLoggingIncludesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(logging.Config{}, &buf)

	h := middleware.RequestID()(middleware.Logging(log)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}
