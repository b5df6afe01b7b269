// Package storage provides the session-scoped saved-filter store.
//
// Saved filters are named filter strings that can be referenced by id when
// listing tasks. The store is an in-memory map guarded by a RWMutex and lives
// for the lifetime of one server process; filters are not persisted to disk
// or to the remote Vikunja instance.
//
// Filter strings are parsed and validated on every create and update, so any
// filter resolved from the store is guaranteed to parse.
package storage
