package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithOperation(t *testing.T) {
	logger := slog.Default()
	result := WithOperation(logger, "task_filtering")
	if result == nil {
		t.Error("WithOperation returned nil")
	}
}

func TestWithTool(t *testing.T) {
	logger := slog.Default()
	result := WithTool(logger, "tasks_list_tasks")
	if result == nil {
		t.Error("WithTool returned nil")
	}
}

func TestOperationAttr(t *testing.T) {
	attr := Operation("list")
	if attr.Key != KeyOperation {
		t.Errorf("Operation key = %q, want %q", attr.Key, KeyOperation)
	}
	if attr.Value.String() != "list" {
		t.Errorf("Operation value = %q, want %q", attr.Value.String(), "list")
	}
}

func TestFilterAttr(t *testing.T) {
	attr := Filter("done = false")
	if attr.Key != KeyFilter {
		t.Errorf("Filter key = %q, want %q", attr.Key, KeyFilter)
	}
	if attr.Value.String() != "done = false" {
		t.Errorf("Filter value = %q, want %q", attr.Value.String(), "done = false")
	}
}

func TestTaskCountAttr(t *testing.T) {
	attr := TaskCount(7)
	if attr.Key != KeyTaskCount {
		t.Errorf("TaskCount key = %q, want %q", attr.Key, KeyTaskCount)
	}
	if attr.Value.Int64() != 7 {
		t.Errorf("TaskCount value = %d, want 7", attr.Value.Int64())
	}
}

func TestErrAttr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}
}

func TestErrAttrWithNil(t *testing.T) {
	attr := Err(nil)
	// A nil error yields an empty group that slog omits from output.
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty", attr.Key)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q, want <empty>", got)
	}
	if got := SanitizeToken("secret-token"); got != "[token:12 chars]" {
		t.Errorf("SanitizeToken = %q, want [token:12 chars]", got)
	}
}
