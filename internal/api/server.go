// Package api provides the HTTP REST API for Hue Logic.
//
// It exposes the switch inventory, button programming, and room snapshot
// operations over JSON, serving local tooling and dashboards.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/huelogic/internal/bridge"
	"github.com/nerrad567/huelogic/internal/cache"
	"github.com/nerrad567/huelogic/internal/infrastructure/config"
	"github.com/nerrad567/huelogic/internal/infrastructure/logging"
	"github.com/nerrad567/huelogic/internal/infrastructure/mqtt"
	"github.com/nerrad567/huelogic/internal/inventory"
	"github.com/nerrad567/huelogic/internal/snapshot"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Cache       *cache.Cache
	Inventory   *inventory.Inventory
	Store       snapshot.Store
	Transport   bridge.Transport
	Mirror      *mqtt.Mirror // optional: snapshot events are published when set
	KeepPerRoom int          // snapshot retention bound, 0 = unlimited
	Version     string
}

// Server is the HTTP API server for Hue Logic.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	cache       *cache.Cache
	inventory   *inventory.Inventory
	store       snapshot.Store
	transport   bridge.Transport
	mirror      *mqtt.Mirror
	keepPerRoom int
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, cache, inventory, store, transport)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("inventory is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if deps.Transport == nil {
		return nil, fmt.Errorf("bridge transport is required")
	}
	// Mirror is optional - snapshot events are simply not published without it

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		cache:       deps.Cache,
		inventory:   deps.Inventory,
		store:       deps.Store,
		transport:   deps.Transport,
		mirror:      deps.Mirror,
		keepPerRoom: deps.KeepPerRoom,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
