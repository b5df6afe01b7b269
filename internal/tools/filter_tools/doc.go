// Package filter_tools provides MCP tools for working with filter
// expressions and session-scoped saved filters.
//
// Expression tools (always registered):
//   - filters_validate_filter: syntax and type checking without execution
//   - filters_build_filter: canonical expression construction from structured
//     conditions, sidestepping quoting and escaping mistakes
//
// Saved-filter tools:
//   - filters_get_filter, filters_list_filters (always registered)
//   - filters_create_filter, filters_update_filter, filters_delete_filter
//     (registered only when write access is enabled)
package filter_tools
