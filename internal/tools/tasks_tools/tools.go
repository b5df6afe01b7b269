package tasks_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vikunja-tools/vikunja-mcp/internal/filtering"
	"github.com/vikunja-tools/vikunja-mcp/internal/instrumentation"
	"github.com/vikunja-tools/vikunja-mcp/internal/server"
	"github.com/vikunja-tools/vikunja-mcp/internal/storage"
	"github.com/vikunja-tools/vikunja-mcp/internal/tools/batch"
	"github.com/vikunja-tools/vikunja-mcp/internal/tools/common"
	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

// RegisterTasksTools registers all task-related tools with the MCP server
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerListTools(s, sc)

	if !readOnly {
		registerWriteTools(s, sc)
	}

	return nil
}

// registerListTools registers the read-only task tools
func registerListTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// List tasks tool, with optional filtering
	listTasksTool := mcp.NewTool("tasks_list_tasks",
		mcp.WithDescription("List tasks with an optional filter expression. Filtering runs server-side when the API accepts the filter and falls back to local evaluation otherwise; the response metadata reports which path was used."),
		mcp.WithString("filter",
			mcp.Description("Filter expression, e.g. \"priority >= 3 && done = false\". Takes precedence over filterId."),
		),
		mcp.WithString("filterId",
			mcp.Description("ID of a saved filter created with filters_create_filter"),
		),
		mcp.WithNumber("projectId",
			mcp.Description("Limit the listing to a single project"),
		),
		mcp.WithBoolean("allProjects",
			mcp.Description("List tasks across all projects (overrides projectId)"),
		),
		mcp.WithBoolean("done",
			mcp.Description("Shorthand for filtering on completion state; combined with the filter via &&"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number (default: 1)"),
		),
		mcp.WithNumber("perPage",
			mcp.Description("Tasks per page (default: 50)"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort field, e.g. \"dueDate\" or \"-priority\" for descending"),
		),
		mcp.WithString("search",
			mcp.Description("Free-text search forwarded to the API"),
		),
	)

	s.AddTool(listTasksTool, common.InstrumentedToolHandlerWithResource("tasks_list_tasks", "tasks", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			req := filtering.Request{
				Filter:      stringArg(args, "filter"),
				FilterID:    stringArg(args, "filterId"),
				ProjectID:   int64Arg(args, "projectId"),
				Page:        intArg(args, "page"),
				PerPage:     intArg(args, "perPage"),
				Sort:        stringArg(args, "sort"),
				Search:      stringArg(args, "search"),
				AllProjects: boolArg(args, "allProjects"),
			}
			if done, ok := args["done"].(bool); ok {
				req.Done = &done
			}

			result, err := sc.Orchestrator().Execute(ctx, req)
			if err != nil {
				return mcp.NewToolResultError(listTasksErrorMessage(err)), nil
			}

			recordFilteringPath(ctx, sc.Metrics(), result)

			payload, _ := json.MarshalIndent(result, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))

	// Get task tool
	getTaskTool := mcp.NewTool("tasks_get_task",
		mcp.WithDescription("Get details of a single task"),
		mcp.WithNumber("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to retrieve"),
		),
	)

	s.AddTool(getTaskTool, common.InstrumentedToolHandlerWithResource("tasks_get_task", "tasks", "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskID := int64Arg(args, "taskId")
			if taskID == 0 {
				return mcp.NewToolResultError("taskId is required"), nil
			}

			task, err := sc.Client().GetTask(ctx, taskID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get task: %v", err)), nil
			}

			payload, _ := json.MarshalIndent(task, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))

	// List projects tool
	listProjectsTool := mcp.NewTool("tasks_list_projects",
		mcp.WithDescription("List all projects visible to the configured API token"),
	)

	s.AddTool(listProjectsTool, common.InstrumentedToolHandlerWithResource("tasks_list_projects", "projects", "list", sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projects, err := sc.Client().ListProjects(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to list projects: %v", err)), nil
			}

			payload, _ := json.MarshalIndent(projects, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))
}

// registerWriteTools registers the task tools that mutate remote state
func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// Create task tool
	createTaskTool := mcp.NewTool("tasks_create_task",
		mcp.WithDescription("Create a task in a project"),
		mcp.WithNumber("projectId",
			mcp.Required(),
			mcp.Description("The ID of the project the task belongs to"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The task title"),
		),
		mcp.WithString("description",
			mcp.Description("Task description"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority from 0 (unset) to 5 (urgent)"),
		),
		mcp.WithString("dueDate",
			mcp.Description("Due date in RFC3339 format"),
		),
	)

	s.AddTool(createTaskTool, common.InstrumentedToolHandlerWithResource("tasks_create_task", "tasks", "create", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			projectID := int64Arg(args, "projectId")
			if projectID == 0 {
				return mcp.NewToolResultError("projectId is required"), nil
			}

			title := stringArg(args, "title")
			if title == "" {
				return mcp.NewToolResultError("title is required"), nil
			}

			input := vikunja.TaskInput{
				Title:       title,
				Description: stringArg(args, "description"),
			}
			if p, ok := args["priority"].(float64); ok {
				priority := int64(p)
				input.Priority = &priority
			}
			if dueStr := stringArg(args, "dueDate"); dueStr != "" {
				due, err := time.Parse(time.RFC3339, dueStr)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("invalid dueDate: %v", err)), nil
				}
				input.DueDate = due
			}

			task, err := sc.Client().CreateTask(ctx, projectID, input)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
			}

			payload, _ := json.MarshalIndent(task, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Task created successfully:\n%s", string(payload))), nil
		}))

	// Update task tool
	updateTaskTool := mcp.NewTool("tasks_update_task",
		mcp.WithDescription("Update an existing task. Only the provided fields change."),
		mcp.WithNumber("taskId",
			mcp.Required(),
			mcp.Description("The ID of the task to update"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority from 0 (unset) to 5 (urgent)"),
		),
		mcp.WithNumber("percentDone",
			mcp.Description("New completion percentage (0-100)"),
		),
		mcp.WithBoolean("done",
			mcp.Description("New completion state"),
		),
		mcp.WithString("dueDate",
			mcp.Description("New due date in RFC3339 format"),
		),
	)

	s.AddTool(updateTaskTool, common.InstrumentedToolHandlerWithResource("tasks_update_task", "tasks", "update", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskID := int64Arg(args, "taskId")
			if taskID == 0 {
				return mcp.NewToolResultError("taskId is required"), nil
			}

			input := vikunja.TaskInput{
				Title:       stringArg(args, "title"),
				Description: stringArg(args, "description"),
			}
			if p, ok := args["priority"].(float64); ok {
				priority := int64(p)
				input.Priority = &priority
			}
			if p, ok := args["percentDone"].(float64); ok {
				percent := int64(p)
				input.PercentDone = &percent
			}
			if done, ok := args["done"].(bool); ok {
				input.Done = &done
			}
			if dueStr := stringArg(args, "dueDate"); dueStr != "" {
				due, err := time.Parse(time.RFC3339, dueStr)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("invalid dueDate: %v", err)), nil
				}
				input.DueDate = due
			}

			task, err := sc.Client().UpdateTask(ctx, taskID, input)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to update task: %v", err)), nil
			}

			payload, _ := json.MarshalIndent(task, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Task updated successfully:\n%s", string(payload))), nil
		}))

	// Delete task tool
	deleteTaskTool := mcp.NewTool("tasks_delete_task",
		mcp.WithDescription("Delete one or more tasks"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("Task ID or array of task IDs to delete"),
		),
	)

	s.AddTool(deleteTaskTool, common.InstrumentedToolHandlerWithResource("tasks_delete_task", "tasks", "delete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskIDs, err := batch.ParseIDOrArray(args["taskId"], "taskId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			results := batch.ProcessBatch(taskIDs, func(taskID int64) (string, error) {
				if err := sc.Client().DeleteTask(ctx, taskID); err != nil {
					return "", err
				}
				return fmt.Sprintf("Task %d deleted successfully", taskID), nil
			})

			return mcp.NewToolResultText(batch.FormatResults(results)), nil
		}))

	// Complete task tool
	completeTaskTool := mcp.NewTool("tasks_complete_task",
		mcp.WithDescription("Mark one or more tasks as done"),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("Task ID or array of task IDs to complete"),
		),
	)

	s.AddTool(completeTaskTool, common.InstrumentedToolHandlerWithResource("tasks_complete_task", "tasks", "complete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			taskIDs, err := batch.ParseIDOrArray(args["taskId"], "taskId")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			results := batch.ProcessBatch(taskIDs, func(taskID int64) (string, error) {
				task, err := sc.Client().CompleteTask(ctx, taskID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Task %d (%s) completed successfully", taskID, task.Title), nil
			})

			return mcp.NewToolResultText(batch.FormatResults(results)), nil
		}))
}

// listTasksErrorMessage shapes orchestrator failures for the caller.
func listTasksErrorMessage(err error) string {
	var orchErr *filtering.OrchestrationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("Saved filter not found: %v", err)
	case errors.As(err, &orchErr):
		return fmt.Sprintf("Task listing failed on both paths: %v", err)
	default:
		return fmt.Sprintf("Failed to list tasks: %v", err)
	}
}

// recordFilteringPath updates the filtering metrics for a completed listing.
func recordFilteringPath(ctx context.Context, metrics *instrumentation.Metrics, result *filtering.Result) {
	if metrics == nil {
		return
	}

	switch {
	case !result.Metadata.ServerSideFilteringAttempted:
		metrics.RecordFilteringRequest(ctx, instrumentation.FilteringPathNone)
	case result.Metadata.ServerSideFilteringUsed:
		metrics.RecordFilteringRequest(ctx, instrumentation.FilteringPathServer)
	default:
		metrics.RecordFilteringRequest(ctx, instrumentation.FilteringPathFallback)
		metrics.RecordFilterFallback(ctx)
	}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func int64Arg(args map[string]interface{}, key string) int64 {
	f, _ := args[key].(float64)
	return int64(f)
}

func intArg(args map[string]interface{}, key string) int {
	f, _ := args[key].(float64)
	return int(f)
}
