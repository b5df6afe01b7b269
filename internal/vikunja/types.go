package vikunja

import (
	"time"
)

// Task represents a Vikunja task
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Done        bool      `json:"done"`
	DoneAt      time.Time `json:"done_at,omitempty"`
	Priority    int64     `json:"priority"`
	PercentDone int64     `json:"percent_done"`
	DueDate     time.Time `json:"due_date,omitempty"`
	Assignees   []User    `json:"assignees,omitempty"`
	Labels      []Label   `json:"labels,omitempty"`
	ProjectID   int64     `json:"project_id"`
	Position    float64   `json:"position,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// AssigneeIDs returns the user IDs of all assignees
func (t *Task) AssigneeIDs() []int64 {
	if len(t.Assignees) == 0 {
		return nil
	}
	ids := make([]int64, len(t.Assignees))
	for i, u := range t.Assignees {
		ids[i] = u.ID
	}
	return ids
}

// LabelIDs returns the IDs of all labels attached to the task
func (t *Task) LabelIDs() []int64 {
	if len(t.Labels) == 0 {
		return nil
	}
	ids := make([]int64, len(t.Labels))
	for i, l := range t.Labels {
		ids[i] = l.ID
	}
	return ids
}

// User represents a Vikunja user
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Label represents a Vikunja label
type Label struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	HexColor string `json:"hex_color,omitempty"`
}

// Project represents a Vikunja project
type Project struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsArchived  bool   `json:"is_archived"`
	ParentID    int64  `json:"parent_project_id,omitempty"`
}

// TaskInput represents the input for creating or updating a task
type TaskInput struct {
	Title       string
	Description string
	Priority    *int64
	PercentDone *int64
	Done        *bool
	DueDate     time.Time
	Labels      []int64
	Assignees   []int64
}

// ListTasksOptions controls the task listing request
type ListTasksOptions struct {
	// Filter is a Vikunja filter expression forwarded verbatim to the API.
	// When the server rejects it, ListTasks returns an error wrapping
	// ErrFilterRejected so callers can fall back to local evaluation.
	Filter string

	// ProjectID limits the listing to a single project. Zero lists tasks
	// across all projects.
	ProjectID int64

	Page    int
	PerPage int
	SortBy  string
	OrderBy string // "asc" or "desc"

	// Search is the free-text search parameter (s=).
	Search string
}
