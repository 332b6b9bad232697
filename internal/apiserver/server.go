// Package apiserver serves the LogLens HTTP surface: the analyze
// endpoint, the Slack slash-command webhook, health and readiness
// probes, Prometheus metrics, and the MCP tool endpoint.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/logging"
)

// ReadinessChecker is an interface for checking component readiness
type ReadinessChecker interface {
	IsReady() bool
}

// NoOpReadinessChecker is a ReadinessChecker that always returns true.
// Use this when no readiness checking is needed.
type NoOpReadinessChecker struct{}

// IsReady always returns true for the no-op checker.
func (n *NoOpReadinessChecker) IsReady() bool {
	return true
}

// Config holds the server's own settings. Handlers and collaborators
// are passed separately so tests can wire stubs.
type Config struct {
	// Port is the port the server listens on
	Port int

	// AuthToken is the shared secret expected in X-Auth-Token
	AuthToken string

	// AllowedOrigins lists CORS origins; "*" allows any
	AllowedOrigins []string
}

// Server handles HTTP API requests
type Server struct {
	config           Config
	server           *http.Server
	router           *http.ServeMux
	logger           *logging.Logger
	metrics          *Metrics
	registry         *prometheus.Registry
	analyzeHandler   *api.AnalyzeHandler
	slackHandler     http.Handler
	mcpServer        *server.MCPServer
	readinessChecker ReadinessChecker
}

// New creates the API server and registers all routes.
// slackHandler and mcpServer may be nil; their endpoints are skipped.
func New(
	cfg Config,
	analyzeHandler *api.AnalyzeHandler,
	slackHandler http.Handler,
	mcpServer *server.MCPServer,
	registry *prometheus.Registry,
	readinessChecker ReadinessChecker,
) *Server {
	if readinessChecker == nil {
		readinessChecker = &NoOpReadinessChecker{}
	}

	s := &Server{
		config:           cfg,
		router:           http.NewServeMux(),
		logger:           logging.GetLogger("apiserver"),
		metrics:          NewMetrics(registry),
		registry:         registry,
		analyzeHandler:   analyzeHandler,
		slackHandler:     slackHandler,
		mcpServer:        mcpServer,
		readinessChecker: readinessChecker,
	}

	s.registerHandlers()
	s.configureHTTPServer()

	return s
}

// configureHTTPServer creates the HTTP server with middleware and timeouts.
// The write timeout must cover a full pipeline run including model-call
// retries, so it is generous.
func (s *Server) configureHTTPServer() {
	handler := s.corsMiddleware(s.loggingMiddleware(s.router))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// Start implements the lifecycle.Component interface.
// Starts the HTTP server and begins listening for requests.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()

	s.logger.Info("API server started and listening on port %d", s.config.Port)
	return nil
}

// Stop implements the lifecycle.Component interface.
// Gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")

	done := make(chan error, 1)
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("HTTP server shutdown error: %v", err)
			return err
		}
		s.logger.Info("API server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("API server shutdown timeout")
		return ctx.Err()
	}
}

// Name implements the lifecycle.Component interface.
func (s *Server) Name() string {
	return "API Server"
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() int {
	return s.config.Port
}

// Handler returns the fully assembled HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = api.WriteJSON(w, map[string]interface{}{
		"status": "healthy",
	})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ready := s.readinessChecker != nil && s.readinessChecker.IsReady()
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = api.WriteJSON(w, map[string]interface{}{
		"ready": ready,
	})
}
