package commands

import (
	"context"
	"fmt"
	"net/http"

	//nolint:gosec // We are using pprof for debugging
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/apiserver"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/knowledge"
	"github.com/loglens/loglens/internal/lifecycle"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/mcp"
	"github.com/loglens/loglens/internal/sentry"
	"github.com/loglens/loglens/internal/slack"
	"github.com/loglens/loglens/internal/tracing"
	"github.com/loglens/loglens/internal/triage"
)

var (
	pprofEnabled bool
	pprofPort    int
	stdioEnabled bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LogLens server",
	Long: `Start the LogLens server which exposes the analysis pipeline over the
HTTP API, the Slack slash-command endpoint, and the MCP tool endpoint.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&pprofEnabled, "pprof-enabled", false, "Enable pprof profiling server (default: false)")
	serveCmd.Flags().IntVar(&pprofPort, "pprof-port", 9999, "Port the pprof server listens on (default: 9999)")
	serveCmd.Flags().BoolVar(&stdioEnabled, "stdio", false, "Enable stdio MCP transport alongside HTTP (default: false)")
}

func runServe(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(configPath)
	HandleError(err, "Configuration error")

	// Setup logging. An explicit --log-level wins over the configured level.
	levelFlags := logLevelFlags
	if !cmd.Root().PersistentFlags().Changed("log-level") && cfg.Log.Level != "" {
		levelFlags = []string{cfg.Log.Level}
	}
	HandleError(setupLog(levelFlags), "Failed to setup logging")
	logger := logging.GetLogger("serve")

	logger.Info("Starting LogLens v%s", Version)
	logger.Debug("Configuration loaded: Port=%d DocsDir=%s", cfg.Server.Port, cfg.Docs.Dir)

	manager := lifecycle.NewManager()

	// Initialize tracing provider
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Endpoint:       cfg.Tracing.Endpoint,
		TLSCAPath:      cfg.Tracing.TLSCAPath,
		ServiceVersion: Version,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider = nil
	}
	if tracingProvider != nil {
		HandleError(manager.Register(tracingProvider), "Tracing registration error")
	}

	// Start pprof server if enabled
	if pprofEnabled {
		go func() {
			pprofAddr := fmt.Sprintf(":%d", pprofPort)
			logger.Info("Starting pprof server on %s", pprofAddr)
			if err := http.ListenAndServe(pprofAddr, nil); err != nil { //nolint:gosec // We are using pprof for debugging
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()

	// Event source
	store := sentry.NewClient(sentry.ClientConfig{
		BaseURL:   cfg.Sentry.BaseURL,
		Org:       cfg.Sentry.Org,
		Project:   cfg.Sentry.Project,
		AuthToken: cfg.Sentry.AuthToken,
		Timeout:   cfg.Sentry.Timeout(),
		CacheSize: cfg.Sentry.CacheSize,
	}, registry)
	narrator := sentry.NewNarrator(store.BaseURL(), cfg.Sentry.Org, cfg.Sentry.Project)

	// Analysis model
	caller, err := analyzer.NewGeminiCaller(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
	HandleError(err, "Model client initialization error")
	causeAnalyzer := analyzer.New(caller, registry)

	// Knowledge documents with live reload
	docs := knowledge.NewLoader(cfg.Docs.Dir)
	docsWatcher, err := knowledge.NewWatcher(knowledge.WatcherConfig{Dir: cfg.Docs.Dir}, docs)
	if err != nil {
		logger.Warn("Document watcher unavailable, edits need a restart or cache expiry: %v", err)
		docsWatcher = nil
	}

	// Triage pipeline
	var tracer trace.Tracer
	if tracingProvider != nil {
		tracer = tracingProvider.GetTracer("triage")
	}
	triageService := triage.NewService(triage.ServiceConfig{
		Store:         store,
		Narrator:      narrator,
		Analyzer:      causeAnalyzer,
		Docs:          docs,
		WindowMinutes: cfg.Sentry.WindowMinutes,
		Tracer:        tracer,
	})

	// MCP server exposing the pipeline as a tool
	mcpComponent := mcp.New(triageService, Version)

	// Slack endpoint; an empty signing secret leaves it answering 503
	slackHandler := slack.NewHandler(cfg.Slack.SigningSecret, triageService)
	if cfg.Slack.Enabled() {
		logger.Info("Slack command endpoint enabled")
	} else {
		logger.Info("SLACK_SIGNING_SECRET not set - Slack endpoint will answer 503")
	}

	// Readiness follows the document watcher when it is running
	var readinessChecker apiserver.ReadinessChecker
	if docsWatcher != nil {
		readinessChecker = docsWatcher
	} else {
		readinessChecker = &apiserver.NoOpReadinessChecker{}
	}

	apiComponent := apiserver.New(
		apiserver.Config{
			Port:           cfg.Server.Port,
			AuthToken:      cfg.Server.AuthToken,
			AllowedOrigins: cfg.Server.AllowedOriginList(),
		},
		api.NewAnalyzeHandler(triageService),
		slackHandler,
		mcpComponent.GetMCPServer(),
		registry,
		readinessChecker,
	)
	logger.Info("API server component created")

	// Register components; the API server starts last and stops first
	if docsWatcher != nil {
		HandleError(manager.Register(docsWatcher), "Document watcher registration error")
		HandleError(manager.Register(apiComponent, docsWatcher), "API server registration error")
	} else {
		HandleError(manager.Register(apiComponent), "API server registration error")
	}

	logger.Info("All components registered with dependencies")
	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.Start(ctx); err != nil {
		logger.Error("Failed to start components: %v", err)
		HandleError(err, "Startup error")
	}

	// Start stdio MCP transport if requested
	if stdioEnabled {
		logger.Info("Starting stdio MCP transport alongside HTTP")
		go func() {
			if err := server.ServeStdio(mcpComponent.GetMCPServer()); err != nil {
				logger.Error("Stdio transport error: %v", err)
			}
		}()
	}

	logger.Info("Application started successfully")
	logger.Info("Listening for analysis requests...")

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown: %v", err)
	}

	logger.Info("Shutdown complete")
}
