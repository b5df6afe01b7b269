package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vikunja-tools/vikunja-mcp/internal/instrumentation"
	"github.com/vikunja-tools/vikunja-mcp/internal/logging"
	"github.com/vikunja-tools/vikunja-mcp/internal/server"
	"github.com/vikunja-tools/vikunja-mcp/internal/tools/filter_tools"
	"github.com/vikunja-tools/vikunja-mcp/internal/tools/tasks_tools"
)

// ServeConfig holds the resolved configuration for the serve command.
// Values come from flags first, then matching environment variables.
type ServeConfig struct {
	Transport        string
	HTTPAddr         string
	Debug            bool
	Yolo             bool
	DisableStreaming bool

	VikunjaURL   string
	VikunjaToken string

	Metrics MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide Vikunja task
management tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (task creation, updates,
  deletion, saved-filter management).

Connection:
  The Vikunja instance and API token are required:
    --vikunja-url and --vikunja-token flags
    OR VIKUNJA_URL and VIKUNJA_TOKEN env vars`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(config)
		},
	}

	cmd.Flags().Bool("debug", false, "Enable debug logging")
	cmd.Flags().String("transport", "stdio", "Transport type: stdio or streamable-http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address (for streamable-http transport). Can also use MCP_HTTP_ADDR env var.")
	cmd.Flags().Bool("yolo", false, "Enable write operations (task creation, updates, deletion). Default is read-only mode.")
	cmd.Flags().Bool("disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().String("vikunja-url", "", "Base URL of the Vikunja instance (e.g., https://vikunja.example.com). Can also use VIKUNJA_URL env var.")
	cmd.Flags().String("vikunja-token", "", "Vikunja API token. Can also use VIKUNJA_TOKEN env var.")

	// Metrics server flags
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().String("metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// resolveServeConfig merges flag values with environment variables.
// Explicitly set flags win over environment variables.
func resolveServeConfig(cmd *cobra.Command) (ServeConfig, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return ServeConfig{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	envBindings := map[string]string{
		"vikunja-url":     "VIKUNJA_URL",
		"vikunja-token":   "VIKUNJA_TOKEN",
		"transport":       "MCP_TRANSPORT",
		"http-addr":       "MCP_HTTP_ADDR",
		"metrics-enabled": "METRICS_ENABLED",
		"metrics-addr":    "METRICS_ADDR",
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return ServeConfig{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := ServeConfig{
		Transport:        v.GetString("transport"),
		HTTPAddr:         v.GetString("http-addr"),
		Debug:            v.GetBool("debug"),
		Yolo:             v.GetBool("yolo"),
		DisableStreaming: v.GetBool("disable-streaming"),
		VikunjaURL:       v.GetString("vikunja-url"),
		VikunjaToken:     v.GetString("vikunja-token"),
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics-enabled"),
			Addr:    v.GetString("metrics-addr"),
		},
	}

	if config.VikunjaURL == "" {
		return ServeConfig{}, fmt.Errorf("vikunja URL is required (--vikunja-url flag or VIKUNJA_URL env var)")
	}
	if config.VikunjaToken == "" {
		return ServeConfig{}, fmt.Errorf("vikunja API token is required (--vikunja-token flag or VIKUNJA_TOKEN env var)")
	}

	return config, nil
}

func runServe(config ServeConfig) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	setupLogging(config.Debug)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Create server context with the Vikunja client, the saved-filter store,
	// and the filtering orchestrator
	opts := server.Options{
		VikunjaURL:   config.VikunjaURL,
		VikunjaToken: config.VikunjaToken,
		ReadOnly:     !config.Yolo,
	}
	if provider.Enabled() {
		opts.Metrics = provider.Metrics()
		opts.AuditLogger = instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, opts)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	serverContext.Orchestrator().SetLogger(slog.Default())
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	healthChecker := server.NewHealthChecker(serverContext)

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if config.Transport != "stdio" && config.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			InstrumentationProvider: provider,
			HealthChecker:           healthChecker,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			slog.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				slog.Error("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("vikunja-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !config.Yolo

	// Log the mode for visibility (only for non-stdio transports)
	if config.Transport != "stdio" {
		if readOnly {
			slog.Info("starting server in read-only mode (use --yolo to enable write operations)")
		} else {
			slog.Info("starting server with write operations enabled (--yolo flag is set)")
		}
	}

	// Register all tools
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	switch config.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, healthChecker, config)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", config.Transport)
	}
}

// setupLogging configures the default slog logger. Logs always go to stderr
// so the stdio transport keeps stdout free for MCP protocol traffic.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// registerAllTools registers all MCP tools
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext, readOnly bool) error {
	// Define all tool registrations
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Tasks",
			register: func() error {
				return tasks_tools.RegisterTasksTools(mcpSrv, ctx, readOnly)
			},
		},
		{
			name: "Filters",
			register: func() error {
				return filter_tools.RegisterFilterTools(mcpSrv, ctx, readOnly)
			},
		},
	}

	// Register all tools
	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, health *server.HealthChecker, config ServeConfig) error {
	var httpServer http.Handler
	if config.DisableStreaming {
		httpServer = mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		httpServer = mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", httpServer)
	health.RegisterHealthEndpoints(mux)

	srv := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting streamable HTTP server",
		"addr", config.HTTPAddr,
		"mcp_endpoint", "/mcp",
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	slog.Info("HTTP server gracefully stopped")
	return nil
}
