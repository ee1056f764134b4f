// Package server provides the HTTP control surface for the fleet: manual
// cycle triggers, status, claims, and archive listings.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/curvefleet/internal/server/handler"
	"github.com/alanyoungcy/curvefleet/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Fleet    *handler.FleetHandler
	Claims   *handler.ClaimsHandler
	PnL      *handler.PnLHandler
	Archives *handler.ArchivesHandler
}

// Server is the headless HTTP control surface for the fleet.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// middleware (logging, CORS, auth) wired in.
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check stays reachable without credentials; see the auth wrap
	// below.
	mux.HandleFunc("GET /healthz", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /claims", handlers.Claims.ListClaims)

	mux.HandleFunc("POST /fleet/cycle", handlers.Fleet.TriggerFleetCycle)
	mux.HandleFunc("POST /agents/{id}/cycle", handlers.Fleet.TriggerAgentCycle)

	mux.HandleFunc("GET /agents/{id}/pnl", handlers.PnL.ListSnapshots)
	mux.HandleFunc("GET /archives", handlers.Archives.ListArchives)

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, "/healthz")(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual fleet cycles run synchronously
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
