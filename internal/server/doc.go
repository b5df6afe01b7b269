// Package server provides the shared runtime context for the MCP server.
//
// ServerContext bundles the Vikunja API client, the session-scoped
// saved-filter store, the task-filtering orchestrator, and the
// observability recorders. Tool handlers receive a ServerContext and never
// construct clients themselves.
//
// The package also hosts the dedicated metrics server (Prometheus /metrics
// plus Kubernetes health probes) which runs on its own port so operational
// endpoints stay off the MCP transport.
package server
