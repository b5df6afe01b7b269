// Package filter implements the task filter expression language.
//
// A filter is a flat chain of field/operator/value conditions joined by &&
// or ||, for example:
//
//	done = false && priority >= 3
//	labels in (1, 2) || assignees in (7)
//	title like "review"
//
// The package provides:
//   - Parse: filter string -> expression tree (or *ParseError)
//   - Validate: field/operator/value compatibility checks with errors and
//     advisory warnings
//   - Builder / Build / Serialize: programmatic construction and canonical
//     serialization, round-trippable through Parse
//   - Evaluate: executes an expression against a single task, fail-closed
//
// Parsing, validation, building and evaluation are pure synchronous
// computations with no shared state; all functions are safe for concurrent
// use.
package filter
