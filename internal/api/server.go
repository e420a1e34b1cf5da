// Package api wires the HTTP surface of the proxy: the shopper-facing search
// endpoint plus health and diagnostic probes. All resolution logic lives in
// the resolver package; every endpoint here goes through the same pipeline.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jafarshop/certsearch/internal/httpx"
	"github.com/jafarshop/certsearch/internal/logging"
	"github.com/jafarshop/certsearch/internal/nivoda"
	"github.com/jafarshop/certsearch/internal/resolver"
)

// ResolverService is the resolution pipeline the handlers call into.
type ResolverService interface {
	Resolve(ctx context.Context, raw string) (resolver.Result, error)
}

// AuthProber reports the active upstream auth mode and exercises a trivial
// authenticated call, backing the /debug/auth probe.
type AuthProber interface {
	AuthMode() nivoda.AuthMode
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	resolver ResolverService
	prober   AuthProber
	logger   *slog.Logger
}

// New creates the API server.
func New(res ResolverService, prober AuthProber, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{resolver: res, prober: prober, logger: logger}
}

// Routes returns a chi.Router with all endpoints mounted and the given
// middleware applied.
func (s *Server) Routes(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	for _, m := range mw {
		r.Use(m)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/search", s.handleSearch)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/auth", s.handleDebugAuth)
		r.Get("/resolve/{certificate}", s.handleDebugResolve)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = httpx.JSON(w, map[string]bool{"ok": true})
}

// searchResponse is the body for both found and not-found outcomes. The
// attempt log is always included: transparency for callers debugging why a
// certificate did or did not match.
type searchResponse struct {
	Found          bool               `json:"found"`
	VariantMatched string             `json:"variantMatched,omitempty"`
	RedirectURL    string             `json:"redirectUrl,omitempty"`
	Diamond        *nivoda.Diamond    `json:"diamond,omitempty"`
	Attempts       []resolver.Attempt `json:"attempts"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	certificate := strings.TrimSpace(r.URL.Query().Get("certificate"))
	if certificate == "" {
		httpx.RenderError(w, httpx.ErrBadRequest.WithMessage("certificate query parameter is required"))
		return
	}
	s.resolve(w, r, certificate)
}

func (s *Server) handleDebugResolve(w http.ResponseWriter, r *http.Request) {
	certificate := strings.TrimSpace(chi.URLParam(r, "certificate"))
	if certificate == "" {
		httpx.RenderError(w, httpx.ErrBadRequest.WithMessage("certificate path parameter is required"))
		return
	}
	s.resolve(w, r, certificate)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, certificate string) {
	res, err := s.resolver.Resolve(r.Context(), certificate)
	if err != nil {
		var authErr *nivoda.AuthError
		if errors.As(err, &authErr) {
			// Full reason goes to the log only; credentials and upstream
			// messages never reach the response body.
			s.logger.ErrorContext(r.Context(), "upstream authentication failed", logging.Error(err))
			httpx.RenderError(w, httpx.ErrInternalServerError.WithMessage("upstream authentication failed"))
			return
		}
		s.logger.ErrorContext(r.Context(), "resolution failed", logging.Error(err))
		httpx.RenderError(w, err)
		return
	}

	attempts := res.Attempts
	if attempts == nil {
		attempts = []resolver.Attempt{}
	}

	if !res.Found {
		if res.AllFailed {
			httpx.RenderError(w, httpx.ErrBadGateway.
				WithMessage("upstream unavailable: every lookup attempt failed").
				WithDetails(map[string]any{"attempts": attempts}))
			return
		}
		_ = httpx.JSON(w, searchResponse{Found: false, Attempts: attempts})
		return
	}

	_ = httpx.JSON(w, searchResponse{
		Found:          true,
		VariantMatched: res.MatchedVariant,
		RedirectURL:    res.DestinationURL,
		Diamond:        res.Record,
		Attempts:       attempts,
	})
}

type debugAuthResponse struct {
	AuthMode   string `json:"authMode"`
	UpstreamOK bool   `json:"upstreamOk"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleDebugAuth(w http.ResponseWriter, r *http.Request) {
	resp := debugAuthResponse{AuthMode: string(s.prober.AuthMode())}

	if err := s.prober.Ping(r.Context()); err != nil {
		resp.Error = "upstream probe failed"
		s.logger.WarnContext(r.Context(), "auth probe failed", logging.Error(err))
	} else {
		resp.UpstreamOK = true
	}

	_ = httpx.JSON(w, resp)
}
