package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/vikunja-tools/vikunja-mcp/internal/filtering"
	"github.com/vikunja-tools/vikunja-mcp/internal/instrumentation"
	"github.com/vikunja-tools/vikunja-mcp/internal/storage"
	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

// ServerContext holds the shared dependencies for the MCP server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	client       *vikunja.Client
	filters      *storage.Store
	orchestrator *filtering.Orchestrator

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	readOnly bool

	mu       sync.RWMutex
	shutdown bool
}

// Options configures a ServerContext.
type Options struct {
	// VikunjaURL is the base URL of the Vikunja instance.
	VikunjaURL string

	// VikunjaToken is the API token used for authentication.
	VikunjaToken string

	// ReadOnly disables all write tools when true.
	ReadOnly bool

	// Metrics is the metrics recorder; optional.
	Metrics *instrumentation.Metrics

	// AuditLogger is the audit logger; optional.
	AuditLogger *instrumentation.AuditLogger
}

// NewServerContext creates a new server context with a connected API client,
// a session-scoped saved-filter store, and the filtering orchestrator.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	client, err := vikunja.NewClient(opts.VikunjaURL, opts.VikunjaToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create vikunja client: %w", err)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	filters := storage.NewStore()

	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		client:       client,
		filters:      filters,
		orchestrator: filtering.NewOrchestrator(client, filters),
		metrics:      opts.Metrics,
		auditLogger:  opts.AuditLogger,
		readOnly:     opts.ReadOnly,
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Client returns the Vikunja API client.
func (sc *ServerContext) Client() *vikunja.Client {
	return sc.client
}

// Filters returns the session-scoped saved-filter store.
func (sc *ServerContext) Filters() *storage.Store {
	return sc.filters
}

// Orchestrator returns the task-filtering orchestrator.
func (sc *ServerContext) Orchestrator() *filtering.Orchestrator {
	return sc.orchestrator
}

// Metrics returns the metrics recorder, or nil when instrumentation is disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is disabled.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// ReadOnly returns whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
