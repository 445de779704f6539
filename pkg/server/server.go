package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/warrenzhu25/spark-insight/pkg/comparator"
	"github.com/warrenzhu25/spark-insight/pkg/spark"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// Server represents the HTTP server
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	comparator  *comparator.Comparator
	provider    spark.Provider
	mu          sync.RWMutex
	ready       bool
}

// NewServer creates a new server instance
func NewServer(config *Config, cmp *comparator.Comparator, provider spark.Provider) (*Server, error) {
	if cmp == nil {
		return nil, xerrors.New(xerrors.ErrCodeInvalidRequest, "comparator cannot be nil")
	}
	if provider == nil {
		return nil, xerrors.New(xerrors.ErrCodeInvalidRequest, "provider cannot be nil")
	}
	if config == nil {
		config = NewConfig()
	}

	s := &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		comparator:  cmp,
		provider:    provider,
	}

	// Setup HTTP server
	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// SetReady marks the server as ready to serve traffic
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Start starts the HTTP server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)

	slog.Info("starting http server", "address", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Run starts the server with signal-driven graceful shutdown.
func Run(config *Config, cmp *comparator.Comparator, provider spark.Provider) error {
	server, err := NewServer(config, cmp, provider)
	if err != nil {
		return err
	}

	slog.Info("server config",
		slog.String("name", server.config.Name),
		slog.String("version", server.config.Version),
		slog.String("address", server.httpServer.Addr),
		slog.Any("rateLimit", server.config.RateLimit),
		slog.Int("rateLimitBurst", server.config.RateLimitBurst),
		slog.Duration("readTimeout", server.config.ReadTimeout),
		slog.Duration("writeTimeout", server.config.WriteTimeout),
		slog.Duration("idleTimeout", server.config.IdleTimeout),
		slog.Duration("shutdownTimeout", server.config.ShutdownTimeout),
	)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
