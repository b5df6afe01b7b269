package filtering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikunja-tools/vikunja-mcp/internal/filter"
	"github.com/vikunja-tools/vikunja-mcp/internal/storage"
	"github.com/vikunja-tools/vikunja-mcp/internal/vikunja"
)

// fakeLister scripts the remote listing capability. Calls with a filter are
// answered by filtered/filterErr; calls without one by broad/broadErr.
type fakeLister struct {
	filtered  []vikunja.Task
	filterErr error
	broad     []vikunja.Task
	broadErr  error
	calls     []vikunja.ListTasksOptions
}

func (f *fakeLister) ListTasks(ctx context.Context, opts vikunja.ListTasksOptions) ([]vikunja.Task, error) {
	f.calls = append(f.calls, opts)
	if opts.Filter != "" {
		return f.filtered, f.filterErr
	}
	return f.broad, f.broadErr
}

func sampleTasks() []vikunja.Task {
	return []vikunja.Task{
		{ID: 1, Title: "urgent", Priority: 4, Done: false},
		{ID: 2, Title: "later", Priority: 2, Done: false},
		{ID: 3, Title: "shipped", Priority: 5, Done: true},
	}
}

func taskIDs(tasks []vikunja.Task) []int64 {
	ids := make([]int64, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestExecuteWithoutFilter(t *testing.T) {
	api := &fakeLister{broad: sampleTasks()}

	result, err := Execute(context.Background(), Request{}, nil, api, nil)
	require.NoError(t, err)

	assert.False(t, result.Metadata.ServerSideFilteringUsed)
	assert.False(t, result.Metadata.ServerSideFilteringAttempted)
	assert.Equal(t, 3, result.Metadata.Count)
	assert.Len(t, result.Tasks, 3)
	require.Len(t, api.calls, 1)
	assert.Empty(t, api.calls[0].Filter)
}

func TestExecuteServerSideSuccess(t *testing.T) {
	api := &fakeLister{filtered: sampleTasks()[:1]}

	result, err := Execute(context.Background(), Request{Filter: "priority >= 3 && done = false"}, nil, api, nil)
	require.NoError(t, err)

	assert.True(t, result.Metadata.ServerSideFilteringUsed)
	assert.True(t, result.Metadata.ServerSideFilteringAttempted)
	assert.Equal(t, []int64{1}, taskIDs(result.Tasks))

	// The remote result is trusted as-is; only one call is made.
	require.Len(t, api.calls, 1)
	assert.Equal(t, "priority >= 3 && done = false", api.calls[0].Filter)
}

func TestExecuteFallsBackToLocalEvaluation(t *testing.T) {
	api := &fakeLister{
		filterErr: vikunja.ErrFilterRejected,
		broad:     sampleTasks(),
	}

	filterStr := "priority >= 3 && done = false"
	result, err := Execute(context.Background(), Request{Filter: filterStr}, nil, api, nil)
	require.NoError(t, err)

	assert.False(t, result.Metadata.ServerSideFilteringUsed)
	assert.True(t, result.Metadata.ServerSideFilteringAttempted)
	assert.Equal(t, []int64{1}, taskIDs(result.Tasks))

	// Exactly one remote attempt, then one broad fetch.
	require.Len(t, api.calls, 2)
	assert.Equal(t, filterStr, api.calls[0].Filter)
	assert.Empty(t, api.calls[1].Filter)

	// The fallback result equals evaluating the parsed filter over the full
	// fetched collection.
	expr, err := filter.Parse(filterStr)
	require.NoError(t, err)
	var want []int64
	for _, task := range sampleTasks() {
		if filter.Evaluate(expr, &task) {
			want = append(want, task.ID)
		}
	}
	assert.Equal(t, want, taskIDs(result.Tasks))
}

func TestExecuteParseErrorSurfacesWithoutFetch(t *testing.T) {
	api := &fakeLister{}

	_, err := Execute(context.Background(), Request{Filter: "priority >>> 3"}, nil, api, nil)
	require.Error(t, err)

	var perr *filter.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, filter.ErrUnknownOperator, perr.Code)
	assert.Equal(t, ">>>", perr.Found)

	assert.Empty(t, api.calls, "a syntax error must not trigger any remote or local fetch")
}

func TestExecuteUnknownSavedFilter(t *testing.T) {
	api := &fakeLister{}
	store := storage.NewStore()

	_, err := Execute(context.Background(), Request{FilterID: "missing"}, store, api, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Empty(t, api.calls, "a dangling saved-filter id must not trigger a fallback")
}

func TestExecuteResolvesSavedFilter(t *testing.T) {
	store := storage.NewStore()
	saved, err := store.Create(context.Background(), storage.FilterInput{
		Name:   "open and important",
		Filter: "priority >= 3 && done = false",
	})
	require.NoError(t, err)

	api := &fakeLister{filtered: sampleTasks()[:1]}

	result, err := Execute(context.Background(), Request{FilterID: saved.ID}, store, api, nil)
	require.NoError(t, err)

	assert.True(t, result.Metadata.ServerSideFilteringUsed)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "priority >= 3 && done = false", api.calls[0].Filter)
}

func TestExecuteInlineFilterWinsOverSavedFilter(t *testing.T) {
	store := storage.NewStore()
	saved, err := store.Create(context.Background(), storage.FilterInput{
		Name:   "saved",
		Filter: "done = true",
	})
	require.NoError(t, err)

	api := &fakeLister{filtered: sampleTasks()[:1]}

	_, err = Execute(context.Background(), Request{
		Filter:   "priority > 1",
		FilterID: saved.ID,
	}, store, api, nil)
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "priority > 1", api.calls[0].Filter)
}

func TestExecuteBothPathsFailing(t *testing.T) {
	api := &fakeLister{
		filterErr: vikunja.ErrFilterRejected,
		broadErr:  errors.New("connection refused"),
	}

	_, err := Execute(context.Background(), Request{Filter: "done = false"}, nil, api, nil)
	require.Error(t, err)

	var oerr *OrchestrationError
	require.True(t, errors.As(err, &oerr))
	assert.ErrorIs(t, oerr.Attempt, vikunja.ErrFilterRejected)
	assert.Contains(t, oerr.Fallback.Error(), "connection refused")
}

func TestExecuteDoneFlagFoldsIntoFilter(t *testing.T) {
	api := &fakeLister{filtered: sampleTasks()[:2]}
	done := false

	result, err := Execute(context.Background(), Request{Done: &done}, nil, api, nil)
	require.NoError(t, err)

	assert.True(t, result.Metadata.ServerSideFilteringAttempted)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "done = false", api.calls[0].Filter)
}

func TestExecuteFallbackAppliesSortAndPagination(t *testing.T) {
	api := &fakeLister{
		filterErr: errors.New("filter unsupported"),
		broad: []vikunja.Task{
			{ID: 1, Priority: 1},
			{ID: 2, Priority: 5},
			{ID: 3, Priority: 3},
			{ID: 4, Priority: 4},
		},
	}

	result, err := Execute(context.Background(), Request{
		Filter:  "priority >= 1",
		Sort:    "-priority",
		Page:    1,
		PerPage: 2,
	}, nil, api, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{2, 4}, taskIDs(result.Tasks))
	assert.Equal(t, 2, result.Metadata.Count)
}

func TestSortTasks(t *testing.T) {
	due := func(day int) time.Time {
		return time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
	}
	tasks := []vikunja.Task{
		{ID: 1, Title: "b", DueDate: due(3)},
		{ID: 2, Title: "a", DueDate: due(1)},
		{ID: 3, Title: "c", DueDate: due(2)},
	}

	sortTasks(tasks, "dueDate")
	assert.Equal(t, []int64{2, 3, 1}, taskIDs(tasks))

	sortTasks(tasks, "-title")
	assert.Equal(t, []int64{3, 1, 2}, taskIDs(tasks))
}

func TestPaginate(t *testing.T) {
	tasks := sampleTasks()

	assert.Len(t, paginate(tasks, 1, 2), 2)
	assert.Len(t, paginate(tasks, 2, 2), 1)
	assert.Empty(t, paginate(tasks, 3, 2))
	// Defaults: page 1, default page size.
	assert.Len(t, paginate(tasks, 0, 0), 3)
}
