package filtering

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vikunja-tools/vikunja-mcp/internal/filter"
	"github.com/vikunja-tools/vikunja-mcp/internal/logging"
	"github.com/vikunja-tools/vikunja-mcp/internal/storage"
	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

const (
	defaultPerPage = 50

	// fallbackFetchSize bounds the broad fetch used for local evaluation.
	fallbackFetchSize = 500
)

// Request is a task listing request. Filter and FilterID are alternative
// filter sources; an inline Filter wins when both are set.
type Request struct {
	Filter      string
	FilterID    string
	Page        int
	PerPage     int
	Sort        string // field name, "-" prefix for descending
	Search      string
	AllProjects bool
	ProjectID   int64
	Done        *bool
}

// Metadata describes which filtering path produced the result.
type Metadata struct {
	ServerSideFilteringUsed      bool `json:"serverSideFilteringUsed"`
	ServerSideFilteringAttempted bool `json:"serverSideFilteringAttempted"`
	Count                        int  `json:"count"`
}

// Result is the reconciled outcome of a filtered task listing.
type Result struct {
	Tasks    []vikunja.Task `json:"tasks"`
	Metadata Metadata       `json:"metadata"`
}

// FilterStore resolves saved-filter ids. Satisfied by *storage.Store.
type FilterStore interface {
	Get(ctx context.Context, id string) (*storage.SavedFilter, error)
}

// TaskLister is the single remote capability the orchestrator consumes.
// Satisfied by *vikunja.Client.
type TaskLister interface {
	ListTasks(ctx context.Context, opts vikunja.ListTasksOptions) ([]vikunja.Task, error)
}

// OrchestrationError is returned when both the server-side filtering attempt
// and the local fallback failed. It is the only fatal failure mode of an
// otherwise well-formed filtering request.
type OrchestrationError struct {
	Attempt  error
	Fallback error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("task filtering failed: server-side attempt: %v; local fallback: %v", e.Attempt, e.Fallback)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Fallback
}

// Orchestrator bundles the dependencies of filtered task listings so that
// callers hold a single handle.
type Orchestrator struct {
	api    TaskLister
	store  FilterStore
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator backed by the given task lister and
// saved-filter store.
func NewOrchestrator(api TaskLister, store FilterStore) *Orchestrator {
	return &Orchestrator{api: api, store: store}
}

// SetLogger sets the logger used for fallback warnings.
func (o *Orchestrator) SetLogger(logger *slog.Logger) {
	o.logger = logger
}

// Execute runs the request against the orchestrator's dependencies.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	return Execute(ctx, req, o.store, o.api, o.logger)
}

// Execute resolves the effective filter for the request and returns the
// matching tasks.
//
// Resolution order:
//  1. A FilterID is looked up in the store; a missing id surfaces immediately.
//  2. An inline Filter takes precedence over the saved filter's string.
//  3. With no filter, the remote listing is returned as-is.
//  4. A filter is parsed first; parse errors surface immediately and never
//     trigger a fallback.
//  5. Server-side filtering is attempted exactly once. On success the remote
//     result is trusted. On any failure the orchestrator fetches a broad task
//     collection and evaluates the parsed expression locally, then applies
//     sort and pagination to the matches.
func Execute(ctx context.Context, req Request, store FilterStore, api TaskLister, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "task_filtering")

	filterStr, err := resolveFilter(ctx, req, store)
	if err != nil {
		return nil, err
	}

	if filterStr == "" {
		tasks, err := api.ListTasks(ctx, remoteOptions(req, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		return &Result{
			Tasks: tasks,
			Metadata: Metadata{
				ServerSideFilteringUsed:      false,
				ServerSideFilteringAttempted: false,
				Count:                        len(tasks),
			},
		}, nil
	}

	// Parse before touching the network: a malformed filter is a caller
	// error, not an environment error, and must not trigger a fallback.
	expr, err := filter.Parse(filterStr)
	if err != nil {
		return nil, err
	}

	tasks, attemptErr := attemptServerSide(ctx, req, filterStr, api)
	if attemptErr == nil {
		return &Result{
			Tasks: tasks,
			Metadata: Metadata{
				ServerSideFilteringUsed:      true,
				ServerSideFilteringAttempted: true,
				Count:                        len(tasks),
			},
		}, nil
	}

	logger.Warn("server-side filtering failed, evaluating locally",
		slog.String("filter", filterStr),
		logging.Err(attemptErr))

	tasks, fallbackErr := clientFallback(ctx, req, expr, api)
	if fallbackErr != nil {
		return nil, &OrchestrationError{Attempt: attemptErr, Fallback: fallbackErr}
	}

	return &Result{
		Tasks: tasks,
		Metadata: Metadata{
			ServerSideFilteringUsed:      false,
			ServerSideFilteringAttempted: true,
			Count:                        len(tasks),
		},
	}, nil
}

// resolveFilter determines the effective filter string for the request.
func resolveFilter(ctx context.Context, req Request, store FilterStore) (string, error) {
	filterStr := req.Filter

	if filterStr == "" && req.FilterID != "" {
		if store == nil {
			return "", fmt.Errorf("%w: id %q", storage.ErrNotFound, req.FilterID)
		}
		saved, err := store.Get(ctx, req.FilterID)
		if err != nil {
			return "", err
		}
		filterStr = saved.Filter
	} else if req.FilterID != "" && store != nil {
		// Inline filter wins, but a dangling id is still a caller error.
		if _, err := store.Get(ctx, req.FilterID); err != nil {
			return "", err
		}
	}

	// A done flag folds into the filter so that every filtering decision
	// flows through the same machinery.
	if req.Done != nil {
		doneCond := fmt.Sprintf("done = %t", *req.Done)
		if filterStr == "" {
			filterStr = doneCond
		} else {
			filterStr = filterStr + " && " + doneCond
		}
	}

	return filterStr, nil
}

// attemptServerSide forwards the filter string to the remote listing
// capability. It is tried exactly once; there is no retry loop.
func attemptServerSide(ctx context.Context, req Request, filterStr string, api TaskLister) ([]vikunja.Task, error) {
	return api.ListTasks(ctx, remoteOptions(req, filterStr))
}

// clientFallback fetches a broad task collection and evaluates the parsed
// expression locally, then sorts and paginates the matches.
func clientFallback(ctx context.Context, req Request, expr filter.Expr, api TaskLister) ([]vikunja.Task, error) {
	opts := vikunja.ListTasksOptions{
		ProjectID: projectScope(req),
		Search:    req.Search,
		PerPage:   fallbackFetchSize,
	}
	all, err := api.ListTasks(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fallback task fetch failed: %w", err)
	}

	matched := make([]vikunja.Task, 0, len(all))
	for i := range all {
		if filter.Evaluate(expr, &all[i]) {
			matched = append(matched, all[i])
		}
	}

	sortTasks(matched, req.Sort)
	return paginate(matched, req.Page, req.PerPage), nil
}

func projectScope(req Request) int64 {
	if req.AllProjects {
		return 0
	}
	return req.ProjectID
}

func remoteOptions(req Request, filterStr string) vikunja.ListTasksOptions {
	opts := vikunja.ListTasksOptions{
		Filter:    filterStr,
		ProjectID: projectScope(req),
		Page:      req.Page,
		PerPage:   req.PerPage,
		Search:    req.Search,
	}
	if req.Sort != "" {
		field, desc := splitSort(req.Sort)
		opts.SortBy = apiSortField(field)
		if desc {
			opts.OrderBy = "desc"
		} else {
			opts.OrderBy = "asc"
		}
	}
	return opts
}

func splitSort(s string) (field string, desc bool) {
	if strings.HasPrefix(s, "-") {
		return s[1:], true
	}
	return s, false
}

// apiSortField maps filter field names to the snake_case names the API uses.
func apiSortField(field string) string {
	switch strings.ToLower(field) {
	case "duedate", "due_date":
		return "due_date"
	case "percentdone", "percent_done":
		return "percent_done"
	default:
		return strings.ToLower(field)
	}
}

func sortTasks(tasks []vikunja.Task, sortKey string) {
	if sortKey == "" {
		return
	}
	field, desc := splitSort(sortKey)

	less := func(a, b *vikunja.Task) bool {
		switch strings.ToLower(field) {
		case "priority":
			return a.Priority < b.Priority
		case "percentdone", "percent_done":
			return a.PercentDone < b.PercentDone
		case "duedate", "due_date":
			return a.DueDate.Before(b.DueDate)
		case "created":
			return a.Created.Before(b.Created)
		case "updated":
			return a.Updated.Before(b.Updated)
		case "title":
			return a.Title < b.Title
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(&tasks[j], &tasks[i])
		}
		return less(&tasks[i], &tasks[j])
	})
}

func paginate(tasks []vikunja.Task, page, perPage int) []vikunja.Task {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(tasks) {
		return []vikunja.Task{}
	}
	end := start + perPage
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end]
}
