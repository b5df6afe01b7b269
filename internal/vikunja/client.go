package vikunja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrFilterRejected indicates the Vikunja server refused a filter expression.
// Callers that can evaluate filters locally should treat this as a signal to
// fall back rather than as a fatal error.
var ErrFilterRejected = errors.New("server rejected filter")

// APIError represents a non-2xx response from the Vikunja API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("vikunja api: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("vikunja api: %s (http status %d)", e.Message, e.StatusCode)
}

// Client wraps the Vikunja REST API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new Vikunja client for the given instance URL and API token.
// The base URL is the instance root, e.g. https://try.vikunja.io
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("vikunja base URL is required (set VIKUNJA_URL or --vikunja-url)")
	}
	if token == "" {
		return nil, fmt.Errorf("vikunja API token is required (set VIKUNJA_TOKEN or --vikunja-token)")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// BaseURL returns the configured instance URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs an authenticated request against the API and decodes the JSON
// response into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(res.Body).Decode(&payload); decodeErr == nil {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	}
	return nil
}

// ListTasks lists tasks, optionally filtered server-side.
// When opts.Filter is set and the server responds with a client error, the
// returned error wraps ErrFilterRejected; callers may then re-fetch without
// the filter and evaluate locally.
func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) ([]Task, error) {
	path := "/tasks/all"
	if opts.ProjectID != 0 {
		path = fmt.Sprintf("/projects/%d/tasks", opts.ProjectID)
	}

	query := url.Values{}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.SortBy != "" {
		query.Set("sort_by", opts.SortBy)
	}
	if opts.OrderBy != "" {
		query.Set("order_by", opts.OrderBy)
	}
	if opts.Search != "" {
		query.Set("s", opts.Search)
	}

	var tasks []Task
	if err := c.do(ctx, http.MethodGet, path, query, nil, &tasks); err != nil {
		var apiErr *APIError
		if opts.Filter != "" && errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity) {
			return nil, fmt.Errorf("%w: %s", ErrFilterRejected, apiErr.Message)
		}
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a specific task by ID
func (c *Client) GetTask(ctx context.Context, taskID int64) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", taskID), nil, nil, &task); err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", taskID, err)
	}
	return &task, nil
}

// CreateTask creates a new task in the given project
func (c *Client) CreateTask(ctx context.Context, projectID int64, input TaskInput) (*Task, error) {
	payload := map[string]interface{}{
		"title": input.Title,
	}
	if input.Description != "" {
		payload["description"] = input.Description
	}
	if input.Priority != nil {
		payload["priority"] = *input.Priority
	}
	if input.PercentDone != nil {
		payload["percent_done"] = *input.PercentDone
	}
	if !input.DueDate.IsZero() {
		payload["due_date"] = input.DueDate.Format(time.RFC3339)
	}

	var task Task
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/projects/%d/tasks", projectID), nil, payload, &task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// UpdateTask updates an existing task. Only fields set on the input are changed.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, input TaskInput) (*Task, error) {
	// Fetch the current state so unset input fields are preserved
	existing, err := c.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != "" {
		existing.Title = input.Title
	}
	if input.Description != "" {
		existing.Description = input.Description
	}
	if input.Priority != nil {
		existing.Priority = *input.Priority
	}
	if input.PercentDone != nil {
		existing.PercentDone = *input.PercentDone
	}
	if input.Done != nil {
		existing.Done = *input.Done
	}
	if !input.DueDate.IsZero() {
		existing.DueDate = input.DueDate
	}

	var task Task
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d", taskID), nil, existing, &task); err != nil {
		return nil, fmt.Errorf("failed to update task %d: %w", taskID, err)
	}
	return &task, nil
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", taskID), nil, nil, nil); err != nil {
		return fmt.Errorf("failed to delete task %d: %w", taskID, err)
	}
	return nil
}

// CompleteTask marks a task as done
func (c *Client) CompleteTask(ctx context.Context, taskID int64) (*Task, error) {
	done := true
	return c.UpdateTask(ctx, taskID, TaskInput{Done: &done})
}

// ListProjects lists all projects visible to the authenticated user
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, nil, &projects); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}
