package vikunja

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "tk_test")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", "tk_test"); err == nil {
		t.Error("expected an error for an empty base URL")
	}
	if _, err := NewClient("https://vikunja.example.com", ""); err == nil {
		t.Error("expected an error for an empty token")
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client, err := NewClient("https://vikunja.example.com/", "tk_test")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if client.BaseURL() != "https://vikunja.example.com" {
		t.Errorf("BaseURL() = %q, want trailing slash removed", client.BaseURL())
	}
}

func TestListTasks(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode([]Task{
			{ID: 1, Title: "write report", Priority: 4},
			{ID: 2, Title: "buy milk", Done: true},
		})
	}))

	tasks, err := client.ListTasks(context.Background(), ListTasksOptions{
		Filter:  "done = false",
		Page:    2,
		PerPage: 50,
		SortBy:  "due_date",
		OrderBy: "asc",
		Search:  "report",
	})
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if gotPath != "/api/v1/tasks/all" {
		t.Errorf("path = %q, want /api/v1/tasks/all", gotPath)
	}
	if gotAuth != "Bearer tk_test" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}

	wantQuery := map[string]string{
		"filter":   "done = false",
		"page":     "2",
		"per_page": "50",
		"sort_by":  "due_date",
		"order_by": "asc",
		"s":        "report",
	}
	for key, want := range wantQuery {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %q", key, got, want)
		}
	}
}

func TestListTasks_ProjectScoped(t *testing.T) {
	var gotPath string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode([]Task{})
	}))

	if _, err := client.ListTasks(context.Background(), ListTasksOptions{ProjectID: 7}); err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if gotPath != "/api/v1/projects/7/tasks" {
		t.Errorf("path = %q, want /api/v1/projects/7/tasks", gotPath)
	}
}

func TestListTasks_FilterRejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid filter expression"})
		}))

		_, err := client.ListTasks(context.Background(), ListTasksOptions{Filter: "bogus <> 1"})
		if !errors.Is(err, ErrFilterRejected) {
			t.Errorf("status %d: error = %v, want ErrFilterRejected", status, err)
		}
	}
}

func TestListTasks_ClientErrorWithoutFilter(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad request"})
	}))

	_, err := client.ListTasks(context.Background(), ListTasksOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrFilterRejected) {
		t.Error("a 400 without a filter must not be treated as a filter rejection")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("error = %v, want wrapped APIError with status 400", err)
	}
}

func TestGetTask(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks/42" {
			t.Errorf("path = %q, want /api/v1/tasks/42", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Task{ID: 42, Title: "write report"})
	}))

	task, err := client.GetTask(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetTask() error: %v", err)
	}
	if task.ID != 42 || task.Title != "write report" {
		t.Errorf("task = %+v, want id 42", task)
	}
}

func TestCreateTask(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]interface{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Task{ID: 99, Title: "new task", ProjectID: 3})
	}))

	priority := int64(4)
	task, err := client.CreateTask(context.Background(), 3, TaskInput{
		Title:    "new task",
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotPath != "/api/v1/projects/3/tasks" {
		t.Errorf("path = %q, want /api/v1/projects/3/tasks", gotPath)
	}
	if gotBody["title"] != "new task" {
		t.Errorf("body title = %v, want %q", gotBody["title"], "new task")
	}
	if gotBody["priority"] != float64(4) {
		t.Errorf("body priority = %v, want 4", gotBody["priority"])
	}
	if _, ok := gotBody["description"]; ok {
		t.Error("empty description must be omitted from the payload")
	}
	if task.ID != 99 {
		t.Errorf("task id = %d, want 99", task.ID)
	}
}

func TestUpdateTask_PreservesUnsetFields(t *testing.T) {
	existing := Task{
		ID:          42,
		Title:       "write report",
		Description: "quarterly numbers",
		Priority:    2,
		ProjectID:   3,
		Created:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	var gotUpdate Task
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(existing)
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
			_ = json.NewEncoder(w).Encode(gotUpdate)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))

	priority := int64(5)
	task, err := client.UpdateTask(context.Background(), 42, TaskInput{Priority: &priority})
	if err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}

	if gotUpdate.Priority != 5 {
		t.Errorf("updated priority = %d, want 5", gotUpdate.Priority)
	}
	if gotUpdate.Title != "write report" {
		t.Errorf("title = %q, want the existing title preserved", gotUpdate.Title)
	}
	if gotUpdate.Description != "quarterly numbers" {
		t.Errorf("description = %q, want the existing description preserved", gotUpdate.Description)
	}
	if task.Priority != 5 {
		t.Errorf("returned priority = %d, want 5", task.Priority)
	}
}

func TestCompleteTask(t *testing.T) {
	var gotUpdate Task
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(Task{ID: 42, Title: "write report"})
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&gotUpdate)
			_ = json.NewEncoder(w).Encode(gotUpdate)
		}
	}))

	task, err := client.CompleteTask(context.Background(), 42)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if !gotUpdate.Done {
		t.Error("update payload must mark the task done")
	}
	if !task.Done {
		t.Error("returned task must be done")
	}
}

func TestDeleteTask(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
	}))

	if err := client.DeleteTask(context.Background(), 42); err != nil {
		t.Fatalf("DeleteTask() error: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %q, want DELETE", gotMethod)
	}
	if gotPath != "/api/v1/tasks/42" {
		t.Errorf("path = %q, want /api/v1/tasks/42", gotPath)
	}
}

func TestListProjects(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/projects" {
			t.Errorf("path = %q, want /api/v1/projects", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]Project{
			{ID: 1, Title: "Inbox"},
			{ID: 2, Title: "Work", IsArchived: true},
		})
	}))

	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects() error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
}

func TestAPIError_Message(t *testing.T) {
	withMessage := &APIError{StatusCode: 403, Message: "forbidden"}
	if withMessage.Error() != "vikunja api: forbidden (http status 403)" {
		t.Errorf("unexpected error string: %q", withMessage.Error())
	}

	withoutMessage := &APIError{StatusCode: 500}
	if withoutMessage.Error() != "vikunja api: http status 500" {
		t.Errorf("unexpected error string: %q", withoutMessage.Error())
	}
}
