// Package server wraps http.Server with graceful shutdown and configuration
// options. TLS terminates at the edge in front of this proxy, so the server
// speaks plain HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Defaults applied by New.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)

// ErrServerAlreadyRunning is returned when Start is called twice.
var ErrServerAlreadyRunning = errors.New("server already running")

// Config holds server configuration with environment variable support.
type Config struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Server wraps http.Server with graceful shutdown. Safe for concurrent use.
type Server struct {
	mu       sync.Mutex
	addr     string
	server   *http.Server
	logger   *slog.Logger
	shutdown time.Duration
	read     time.Duration
	write    time.Duration
	idle     time.Duration
	running  bool
}

// Option configures server behavior.
type Option func(*Server)

// WithLogger sets a custom logger for server operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithShutdownTimeout sets the maximum time to wait for graceful shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) { s.shutdown = timeout }
}

// New creates a Server with the given address and options.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdown: DefaultShutdownTimeout,
		read:     DefaultReadTimeout,
		write:    DefaultWriteTimeout,
		idle:     DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromConfig creates a Server from configuration. Additional options
// override config values.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	s := New(cfg.Addr)
	if cfg.ReadTimeout > 0 {
		s.read = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		s.write = cfg.WriteTimeout
	}
	if cfg.IdleTimeout > 0 {
		s.idle = cfg.IdleTimeout
	}
	if cfg.ShutdownTimeout > 0 {
		s.shutdown = cfg.ShutdownTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the server and blocks until the context is canceled or the
// listener fails. Use Stop for graceful shutdown.
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.running = true
	s.server = &http.Server{
		Addr:           s.addr,
		Handler:        handler,
		ReadTimeout:    s.read,
		WriteTimeout:   s.write,
		IdleTimeout:    s.idle,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
	}
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "starting server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the server using the configured timeout.
// Returns immediately if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server gracefully", "timeout", s.shutdown)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.running = false
	if err != nil {
		s.logger.Error("server shutdown error", "error", err)
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Run starts the server, monitors context cancellation and performs graceful
// shutdown when the context is canceled.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start(ctx, handler)
	}()

	select {
	case <-ctx.Done():
		if stopErr := s.Stop(); stopErr != nil {
			s.logger.Error("failed to stop server during context cancellation", "error", stopErr)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}
