// Package logging provides structured logging utilities for the application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "task_filtering")
//	logger.Info("listing tasks",
//	    logging.Filter(filterStr),
//	    logging.TaskCount(len(tasks)))
//
// API tokens are never logged directly; use SanitizeToken when a token must
// appear in a log line.
package logging
