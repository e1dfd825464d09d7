// Package server serves the stress trigger page: a button that starts a run,
// an output area that polls the run's log, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goforj/cachestorage"
	"github.com/goforj/cachestorage/internal/stress"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("server")

// Config controls the HTTP listener.
type Config struct {
	Listen          string
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Server is the trigger page HTTP server. Runs it starts outlive the request
// that started them and are canceled by Stop.
type Server struct {
	server  *http.Server
	config  Config
	storage *cachestorage.Storage
	stress  stress.Config
	metrics http.Handler
	now     func() time.Time

	runCtx    context.Context
	cancelRun context.CancelFunc
	runs      *registry

	shutdownOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics exposes h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New creates a stopped server. Every run uses storage and stressCfg.
func New(config Config, storage *cachestorage.Storage, stressCfg stress.Config, opts ...Option) *Server {
	config.applyDefaults()
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    config,
		storage:   storage,
		stress:    stressCfg,
		now:       time.Now,
		runCtx:    runCtx,
		cancelRun: cancel,
		runs:      newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		log.Infow("trigger page listening", "addr", s.config.Listen)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		s.cancelRun()
		return fmt.Errorf("trigger server failed: %w", err)
	}
}

// Stop cancels in-flight runs, shuts the listener down and waits until the
// canceled runs finish or ctx ends. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cancelRun()
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("trigger server shutdown: %w", err)
			log.Errorw("trigger server shutdown failed", "error", err)
			return
		}
		s.drainRuns(ctx)
		log.Info("trigger server stopped")
	})
	return shutdownErr
}

func (s *Server) drainRuns(ctx context.Context) {
	for _, rn := range s.runs.list() {
		select {
		case <-rn.launch.Done():
		case <-ctx.Done():
			log.Warnw("runs still in flight at shutdown", "run", rn.id.String())
			return
		}
	}
}
