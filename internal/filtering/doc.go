// Package filtering orchestrates task listing with filter expressions.
//
// The orchestrator decides whether a filter can be delegated to the remote
// Vikunja instance or must be evaluated locally, and reconciles both paths
// into one result shape with diagnostic metadata:
//
//	Start -> ResolveFilter -> NoFilter                     -> Done
//	                       -> ParseError                   -> Failed
//	                       -> AttemptServer -> Success     -> Done
//	                                        -> Fail -> ClientFallback -> Done
//
// There is exactly one remote filtering attempt before falling back, so a
// misbehaving server cannot stall a request in a retry loop. The fallback
// fetches a broad task collection once and runs the filter evaluator over
// each record.
package filtering
