package filter_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vikunja-tools/vikunja-mcp/internal/filter"
	"github.com/vikunja-tools/vikunja-mcp/internal/server"
	"github.com/vikunja-tools/vikunja-mcp/internal/storage"
	"github.com/vikunja-tools/vikunja-mcp/internal/tools/common"
)

// validationReport is the JSON payload of filters_validate_filter.
type validationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Position int      `json:"position,omitempty"`
	Code     string   `json:"code,omitempty"`
}

// buildReport is the JSON payload of filters_build_filter.
type buildReport struct {
	Filter   string   `json:"filter"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RegisterFilterTools registers all saved-filter and filter-expression tools
// with the MCP server
func RegisterFilterTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerExpressionTools(s, sc)
	registerStoreReadTools(s, sc)

	if !readOnly {
		registerStoreWriteTools(s, sc)
	}

	return nil
}

// registerExpressionTools registers the stateless expression tools
func registerExpressionTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// Validate filter tool
	validateTool := mcp.NewTool("filters_validate_filter",
		mcp.WithDescription("Check a filter expression for syntax errors and field/operator/value type mismatches without running it"),
		mcp.WithString("filter",
			mcp.Required(),
			mcp.Description("The filter expression to validate, e.g. \"priority >= 3 && done = false\""),
		),
	)

	s.AddTool(validateTool, common.InstrumentedToolHandler("filters_validate_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			filterStr, _ := args["filter"].(string)
			report := validateFilter(filterStr)

			payload, _ := json.MarshalIndent(report, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))

	// Build filter tool
	buildTool := mcp.NewTool("filters_build_filter",
		mcp.WithDescription("Build a canonical filter expression from structured conditions, avoiding any escaping pitfalls. Conditions are objects with field, operator and value keys."),
		mcp.WithArray("conditions",
			mcp.Required(),
			mcp.Description(`Array of conditions, e.g. [{"field": "priority", "operator": ">=", "value": 3}]`),
		),
		mcp.WithString("group",
			mcp.Description(`How to join the conditions: "and" (default) or "or"`),
		),
	)

	s.AddTool(buildTool, common.InstrumentedToolHandler("filters_build_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			rawConditions, ok := args["conditions"].([]interface{})
			if !ok || len(rawConditions) == 0 {
				return mcp.NewToolResultError("conditions must be a non-empty array"), nil
			}

			group := filter.CombinatorAnd
			if g, _ := args["group"].(string); strings.EqualFold(g, "or") {
				group = filter.CombinatorOr
			}

			conditions := make([]filter.Condition, 0, len(rawConditions))
			for i, raw := range rawConditions {
				cond, err := parseCondition(raw)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("conditions[%d]: %v", i, err)), nil
				}
				conditions = append(conditions, cond)
			}

			built := filter.Build(conditions, group)
			report := buildReport{Filter: built}

			// The built string is canonical, but the conditions may still
			// combine incompatible fields and operators.
			validation := validateFilter(built)
			report.Valid = validation.Valid
			report.Errors = validation.Errors
			report.Warnings = validation.Warnings

			payload, _ := json.MarshalIndent(report, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))
}

// registerStoreReadTools registers the read-only saved-filter tools
func registerStoreReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// Get filter tool
	getTool := mcp.NewTool("filters_get_filter",
		mcp.WithDescription("Get a saved filter by id or name"),
		mcp.WithString("id",
			mcp.Description("The saved filter id"),
		),
		mcp.WithString("name",
			mcp.Description("The saved filter name (used when id is not given)"),
		),
	)

	s.AddTool(getTool, common.InstrumentedToolHandler("filters_get_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			id, _ := args["id"].(string)
			name, _ := args["name"].(string)

			var saved *storage.SavedFilter
			var err error
			switch {
			case id != "":
				saved, err = sc.Filters().Get(ctx, id)
			case name != "":
				saved, err = sc.Filters().FindByName(ctx, name)
			default:
				return mcp.NewToolResultError("either id or name is required"), nil
			}
			if err != nil {
				return mcp.NewToolResultError(filterErrorMessage(err)), nil
			}

			payload, _ := json.MarshalIndent(saved, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))

	// List filters tool
	listTool := mcp.NewTool("filters_list_filters",
		mcp.WithDescription("List all saved filters of this session, sorted by name"),
	)

	s.AddTool(listTool, common.InstrumentedToolHandler("filters_list_filters", sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			filters := sc.Filters().List(ctx)

			payload, _ := json.MarshalIndent(filters, "", "  ")
			return mcp.NewToolResultText(string(payload)), nil
		}))
}

// registerStoreWriteTools registers the saved-filter tools that mutate state
func registerStoreWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	// Create filter tool
	createTool := mcp.NewTool("filters_create_filter",
		mcp.WithDescription("Save a filter expression under a name for reuse with tasks_list_tasks (via filterId). Saved filters live for the duration of the session."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unique name for the saved filter"),
		),
		mcp.WithString("filter",
			mcp.Required(),
			mcp.Description("The filter expression to save; it is validated before saving"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
		mcp.WithNumber("projectId",
			mcp.Description("Project the filter applies to; omit for a global filter"),
		),
		mcp.WithBoolean("isGlobal",
			mcp.Description("Mark the filter as applying across all projects"),
		),
	)

	s.AddTool(createTool, common.InstrumentedToolHandler("filters_create_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			input := storage.FilterInput{
				Name:        stringArg(args, "name"),
				Filter:      stringArg(args, "filter"),
				Description: stringArg(args, "description"),
				IsGlobal:    boolArg(args, "isGlobal"),
			}
			if p, ok := args["projectId"].(float64); ok {
				input.ProjectID = int64(p)
			}

			saved, err := sc.Filters().Create(ctx, input)
			if err != nil {
				return mcp.NewToolResultError(filterErrorMessage(err)), nil
			}

			payload, _ := json.MarshalIndent(saved, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Filter saved successfully:\n%s", string(payload))), nil
		}))

	// Update filter tool
	updateTool := mcp.NewTool("filters_update_filter",
		mcp.WithDescription("Update a saved filter. Only the provided fields change."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The id of the saved filter to update"),
		),
		mcp.WithString("name",
			mcp.Description("New name"),
		),
		mcp.WithString("filter",
			mcp.Description("New filter expression; it is validated before saving"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
	)

	s.AddTool(updateTool, common.InstrumentedToolHandler("filters_update_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			id := stringArg(args, "id")
			if id == "" {
				return mcp.NewToolResultError("id is required"), nil
			}

			input := storage.FilterInput{
				Name:        stringArg(args, "name"),
				Filter:      stringArg(args, "filter"),
				Description: stringArg(args, "description"),
			}

			saved, err := sc.Filters().Update(ctx, id, input)
			if err != nil {
				return mcp.NewToolResultError(filterErrorMessage(err)), nil
			}

			payload, _ := json.MarshalIndent(saved, "", "  ")
			return mcp.NewToolResultText(fmt.Sprintf("Filter updated successfully:\n%s", string(payload))), nil
		}))

	// Delete filter tool
	deleteTool := mcp.NewTool("filters_delete_filter",
		mcp.WithDescription("Delete a saved filter"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The id of the saved filter to delete"),
		),
	)

	s.AddTool(deleteTool, common.InstrumentedToolHandler("filters_delete_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			id := stringArg(args, "id")
			if id == "" {
				return mcp.NewToolResultError("id is required"), nil
			}

			if err := sc.Filters().Delete(ctx, id); err != nil {
				return mcp.NewToolResultError(filterErrorMessage(err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("Filter %s deleted successfully", id)), nil
		}))
}

// validateFilter parses and validates an expression, folding parse errors
// into the same report shape as semantic findings.
func validateFilter(filterStr string) validationReport {
	expr, err := filter.Parse(filterStr)
	if err != nil {
		report := validationReport{
			Valid:  false,
			Errors: []string{err.Error()},
		}
		var parseErr *filter.ParseError
		if errors.As(err, &parseErr) {
			report.Position = parseErr.Pos
			report.Code = string(parseErr.Code)
		}
		return report
	}

	result := filter.Validate(expr)
	return validationReport{
		Valid:    result.Valid,
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
}

// parseCondition converts one structured condition object into a typed
// filter.Condition.
func parseCondition(raw interface{}) (filter.Condition, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return filter.Condition{}, fmt.Errorf("must be an object with field, operator and value")
	}

	fieldName, _ := obj["field"].(string)
	field, ok := filter.LookupField(fieldName)
	if !ok {
		return filter.Condition{}, fmt.Errorf("unknown field %q", fieldName)
	}

	opName, _ := obj["operator"].(string)
	op, err := parseOperator(opName)
	if err != nil {
		return filter.Condition{}, err
	}

	value, err := parseValue(obj["value"])
	if err != nil {
		return filter.Condition{}, err
	}

	return filter.Condition{Field: field, Op: op, Value: value}, nil
}

func parseOperator(name string) (filter.Operator, error) {
	switch filter.Operator(strings.ToLower(strings.TrimSpace(name))) {
	case filter.OpEquals:
		return filter.OpEquals, nil
	case filter.OpNotEquals:
		return filter.OpNotEquals, nil
	case filter.OpGreater:
		return filter.OpGreater, nil
	case filter.OpGreaterEquals:
		return filter.OpGreaterEquals, nil
	case filter.OpLess:
		return filter.OpLess, nil
	case filter.OpLessEquals:
		return filter.OpLessEquals, nil
	case filter.OpLike:
		return filter.OpLike, nil
	case filter.OpIn:
		return filter.OpIn, nil
	case filter.OpNotIn:
		return filter.OpNotIn, nil
	default:
		return "", fmt.Errorf("unknown operator %q", name)
	}
}

func parseValue(raw interface{}) (filter.Value, error) {
	switch v := raw.(type) {
	case string:
		return filter.StringValue(v), nil
	case float64:
		return filter.NumberValue(v), nil
	case bool:
		return filter.BoolValue(v), nil
	case []interface{}:
		items := make([]filter.Value, 0, len(v))
		for i, item := range v {
			parsed, err := parseValue(item)
			if err != nil {
				return filter.Value{}, fmt.Errorf("value[%d]: %v", i, err)
			}
			if parsed.Kind == filter.ValueList {
				return filter.Value{}, fmt.Errorf("value[%d]: nested lists are not supported", i)
			}
			items = append(items, parsed)
		}
		return filter.ListValue(items...), nil
	case nil:
		return filter.Value{}, fmt.Errorf("value is required")
	default:
		return filter.Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// filterErrorMessage shapes store failures for the caller.
func filterErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Sprintf("Saved filter not found: %v", err)
	case errors.Is(err, storage.ErrDuplicateName):
		return fmt.Sprintf("Name conflict: %v", err)
	default:
		return fmt.Sprintf("Filter operation failed: %v", err)
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
