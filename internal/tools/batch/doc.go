// Package batch provides helpers for tools that accept one or many task ids,
// running the operation per id and aggregating per-id outcomes into a single
// JSON report.
package batch
