package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jafarshop/certsearch/internal/logging"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Logger is the slog logger to use (default: slog.Default()).
	Logger *slog.Logger

	// SkipPaths lists request paths that are not logged, e.g. health probes.
	SkipPaths []string

	// SlowRequestThreshold logs slow requests at warning level (default 5s).
	SlowRequestThreshold time.Duration
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging returns a request logging middleware with default configuration.
func Logging(log *slog.Logger) func(http.Handler) http.Handler {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig returns a structured request/response logging middleware.
func LoggingWithConfig(cfg LoggingConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				logging.Elapsed(start),
			}
			if id, ok := GetRequestID(r.Context()); ok {
				attrs = append(attrs, slog.String("request_id", id))
			}

			elapsed := time.Since(start)
			switch {
			case elapsed >= cfg.SlowRequestThreshold:
				cfg.Logger.WarnContext(r.Context(), "slow request", attrs...)
			case rec.status >= http.StatusInternalServerError:
				cfg.Logger.ErrorContext(r.Context(), "request failed", attrs...)
			default:
				cfg.Logger.InfoContext(r.Context(), "request", attrs...)
			}
		})
	}
}
