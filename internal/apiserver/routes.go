package apiserver

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerHandlers sets up all HTTP routes.
// The analyze endpoint requires the shared-secret token. The Slack
// endpoint does not; it is authenticated by signature verification
// inside the handler. Probes and metrics are open.
func (s *Server) registerHandlers() {
	s.router.HandleFunc("/api/analyze",
		s.withMethod(http.MethodPost, s.authMiddleware(s.instrument("/api/analyze", s.analyzeHandler.Handle))))

	if s.slackHandler != nil {
		s.router.HandleFunc("/slack/commands",
			s.withMethod(http.MethodPost, s.instrument("/slack/commands", s.slackHandler.ServeHTTP)))
	}

	if s.mcpServer != nil {
		endpointPath := "/v1/mcp"
		s.logger.Info("Registering MCP endpoint at %s", endpointPath)

		streamableServer := server.NewStreamableHTTPServer(
			s.mcpServer,
			server.WithEndpointPath(endpointPath),
			server.WithStateLess(true), // Stateless mode for clients that do not manage sessions
		)
		s.router.Handle(endpointPath, streamableServer)
	}

	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, s.handleHealth))
	s.router.HandleFunc("/ready", s.withMethod(http.MethodGet, s.handleReady))

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}
