package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, FilterInput{
		Name:   "urgent",
		Filter: "priority >= 4 && done = false",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Created.IsZero())

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "urgent", got.Name)
	assert.Equal(t, "priority >= 4 && done = false", got.Filter)
}

func TestStoreGetUnknownID(t *testing.T) {
	store := NewStore()

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreCreateRejectsInvalidFilter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Create(ctx, FilterInput{Name: "broken", Filter: "priority >>> 3"})
	require.Error(t, err)

	_, err = store.Create(ctx, FilterInput{Name: "incompatible", Filter: "done > true"})
	require.Error(t, err)

	_, err = store.Create(ctx, FilterInput{Name: "empty", Filter: ""})
	require.Error(t, err)
}

func TestStoreCreateRejectsDuplicateName(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Create(ctx, FilterInput{Name: "mine", Filter: "done = false"})
	require.NoError(t, err)

	_, err = store.Create(ctx, FilterInput{Name: "mine", Filter: "done = true"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateName))

	// Name uniqueness is case-insensitive.
	_, err = store.Create(ctx, FilterInput{Name: "MINE", Filter: "done = true"})
	assert.True(t, errors.Is(err, ErrDuplicateName))
}

func TestStoreFindByName(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, FilterInput{Name: "overdue", Filter: "dueDate < 2024-01-01"})
	require.NoError(t, err)

	found, err := store.FindByName(ctx, "overdue")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.FindByName(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreListSortsByName(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.Create(ctx, FilterInput{Name: name, Filter: "done = false"})
		require.NoError(t, err)
	}

	list := store.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, FilterInput{Name: "old", Filter: "done = false"})
	require.NoError(t, err)

	updated, err := store.Update(ctx, created.ID, FilterInput{
		Name:   "new",
		Filter: "priority > 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "priority > 2", updated.Filter)

	// Invalid replacement filters are rejected and nothing changes.
	_, err = store.Update(ctx, created.ID, FilterInput{Filter: "priority = abc"})
	require.Error(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "priority > 2", got.Filter)
}

func TestStoreUpdateUnknownID(t *testing.T) {
	store := NewStore()

	_, err := store.Update(context.Background(), "missing", FilterInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, FilterInput{Name: "gone", Filter: "done = true"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))
	assert.True(t, errors.Is(store.Delete(ctx, created.ID), ErrNotFound))

	_, err = store.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	created, err := store.Create(ctx, FilterInput{Name: "stable", Filter: "done = false"})
	require.NoError(t, err)

	created.Name = "mutated"

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "stable", got.Name, "callers must not be able to mutate stored state")
}
