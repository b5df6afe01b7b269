// Package common provides shared helpers for MCP tool packages, primarily
// the instrumentation wrapper applied to every registered tool handler.
package common
