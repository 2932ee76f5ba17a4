// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/plantops/plantsentry/internal/actions"
	"github.com/plantops/plantsentry/internal/alerting"
	"github.com/plantops/plantsentry/internal/api/health"
	"github.com/plantops/plantsentry/internal/notifier"
	"github.com/plantops/plantsentry/internal/poller"
	"github.com/plantops/plantsentry/internal/registry"
)

// Notifier is the slice of the dispatcher the API needs: confirmation
// sends and counters for the stats endpoint.
type Notifier interface {
	Notify(ctx context.Context, to, text string) error
	Stats() notifier.StatsSnapshot
}

// PollerStats exposes polling loop counters for the stats endpoint.
type PollerStats interface {
	Stats() poller.Stats
}

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	RateLimitPerIP int // requests per minute per client IP
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 120
	}
}

// Deps holds the collaborators the API serves.
type Deps struct {
	Registry *registry.Registry
	Store    *alerting.IdentityStore
	Tracker  *actions.Tracker
	Notifier Notifier
	Poller   PollerStats
	Logger   *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	registry      *registry.Registry
	store         *alerting.IdentityStore
	tracker       *actions.Tracker
	notifier      Notifier
	poller        PollerStats
	logger        *zap.Logger
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("subscriber registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("alert store is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("action tracker is required")
	}

	cfg.SetDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:        cfg,
		registry:      deps.Registry,
		store:         deps.Store,
		tracker:       deps.Tracker,
		notifier:      deps.Notifier,
		poller:        deps.Poller,
		logger:        logger,
		healthHandler: health.NewHandler(),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("http api listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
