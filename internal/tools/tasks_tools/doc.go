// Package tasks_tools provides MCP tools for task management.
//
// Read tools (always registered):
//   - tasks_list_tasks: list tasks with optional filtering; the listing goes
//     through the filtering orchestrator, which attempts server-side filtering
//     and falls back to local evaluation when the API rejects the filter
//   - tasks_get_task: fetch a single task
//   - tasks_list_projects: list visible projects
//
// Write tools (registered only when write access is enabled):
//   - tasks_create_task
//   - tasks_update_task
//   - tasks_delete_task (accepts one or many ids)
//   - tasks_complete_task (accepts one or many ids)
package tasks_tools
