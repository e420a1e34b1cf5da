// Package middleware provides the HTTP middleware used by the proxy: CORS,
// request IDs and request logging.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig defines configuration options for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins specifies allowed origins. Empty or "*" allows all.
	AllowOrigins []string

	// AllowMethods specifies allowed HTTP methods.
	// If empty, defaults to GET, HEAD, PUT, PATCH, POST, DELETE.
	AllowMethods []string

	// AllowHeaders specifies allowed request headers.
	AllowHeaders []string

	// AllowCredentials indicates whether credentials are allowed. Ignored for
	// wildcard origins per the CORS spec.
	AllowCredentials bool

	// MaxAge specifies how long preflight responses can be cached (seconds).
	MaxAge int
}

// CORS returns a CORS middleware with default configuration (all origins).
func CORS() func(http.Handler) http.Handler {
	return CORSWithConfig(CORSConfig{})
}

// CORSWithConfig returns a CORS middleware handling both preflight OPTIONS
// requests and actual cross-origin requests.
func CORSWithConfig(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Accept-Language",
			"Content-Language",
			"Content-Type",
			"Origin",
			"Authorization",
			"X-Request-ID",
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")

	allowOrigins := make(map[string]bool, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		allowOrigins[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			var allowedOrigin string
			allowed := false
			if len(cfg.AllowOrigins) == 0 || allowOrigins["*"] {
				allowedOrigin = "*"
				allowed = true
			} else if allowOrigins[origin] {
				allowedOrigin = origin
				allowed = true
			}

			isPreflight := r.Method == http.MethodOptions &&
				r.Header.Get("Access-Control-Request-Method") != ""

			if isPreflight {
				requestMethod := r.Header.Get("Access-Control-Request-Method")
				if !allowed || !slices.Contains(cfg.AllowMethods, requestMethod) {
					w.WriteHeader(http.StatusForbidden)
					return
				}

				headers := w.Header()
				headers.Set("Access-Control-Allow-Origin", allowedOrigin)
				headers.Set("Access-Control-Allow-Methods", allowMethods)
				if r.Header.Get("Access-Control-Request-Headers") != "" {
					headers.Set("Access-Control-Allow-Headers", allowHeaders)
				}
				if cfg.AllowCredentials && allowedOrigin != "*" {
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
				if cfg.MaxAge > 0 {
					headers.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				headers.Add("Vary", "Origin")
				headers.Add("Vary", "Access-Control-Request-Method")
				headers.Add("Vary", "Access-Control-Request-Headers")

				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed {
				headers := w.Header()
				headers.Set("Access-Control-Allow-Origin", allowedOrigin)
				if cfg.AllowCredentials && allowedOrigin != "*" {
					headers.Set("Access-Control-Allow-Credentials", "true")
				}
				headers.Add("Vary", "Origin")
			}

			next.ServeHTTP(w, r)
		})
	}
}
