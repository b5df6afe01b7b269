package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vikunja-tools/vikunja-mcp/internal/instrumentation"
	"github.com/vikunja-tools/vikunja-mcp/internal/server"
)

func TestWrappedHandlersRegisterWithMCPServer(t *testing.T) {
	sc := newTestContext(t, server.Options{})
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	// The wrappers must be usable directly as mcp-go tool handlers.
	var _ mcpserver.ToolHandlerFunc = InstrumentedToolHandler("test_tool", sc, handler)
	var _ mcpserver.ToolHandlerFunc = InstrumentedToolHandlerWithResource("test_tool", "tasks", "list", sc, handler)

	s := mcpserver.NewMCPServer("test", "0.0.1")
	s.AddTool(mcp.NewTool("test_tool"), InstrumentedToolHandler("test_tool", sc, handler))
}

func newTestContext(t *testing.T, opts server.Options) *server.ServerContext {
	t.Helper()

	if opts.VikunjaURL == "" {
		opts.VikunjaURL = "https://vikunja.example.com"
	}
	if opts.VikunjaToken == "" {
		opts.VikunjaToken = "tk_test"
	}

	sc, err := server.NewServerContext(context.Background(), opts)
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })

	return sc
}

func requestWithArgs(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	sc := newTestContext(t, server.Options{})

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc := newTestContext(t, server.Options{})

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	sc := newTestContext(t, server.Options{})

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil || !result.IsError {
		t.Error("expected an error result")
	}
}

func TestInstrumentedToolHandler_AuditsFilterID(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	sc := newTestContext(t, server.Options{AuditLogger: audit})

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandler("tasks_list_tasks", sc, handler)

	req := requestWithArgs(map[string]interface{}{
		"filterId": "abc-123",
		"filter":   "done = false",
	})
	if _, err := wrapped(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "tool_executed") {
		t.Errorf("expected tool_executed audit entry, got %q", out)
	}
	if !strings.Contains(out, "abc-123") {
		t.Errorf("expected filter id in audit entry, got %q", out)
	}
	if strings.Contains(out, "done = false") {
		t.Error("filter expression must not appear in default audit output")
	}
}

func TestInstrumentedToolHandlerWithResource_Success(t *testing.T) {
	sc := newTestContext(t, server.Options{})

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := InstrumentedToolHandlerWithResource("tasks_list_tasks", "tasks", "list", sc, handler)

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result == nil {
		t.Error("expected result, got nil")
	}
}

func TestInstrumentedToolHandlerWithResource_FailureAudited(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	sc := newTestContext(t, server.Options{AuditLogger: audit})

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errors.New("api unavailable")
	}

	wrapped := InstrumentedToolHandlerWithResource("tasks_get_task", "tasks", "get", sc, handler)

	if _, err := wrapped(context.Background(), mcp.CallToolRequest{}); err == nil {
		t.Fatal("expected an error")
	}

	if !strings.Contains(buf.String(), "tool_failed") {
		t.Errorf("expected tool_failed audit entry, got %q", buf.String())
	}
}
