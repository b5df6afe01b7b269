package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vikunja-tools/vikunja-mcp/internal/filter"
)

// ErrNotFound is returned when no saved filter matches the given id or name.
var ErrNotFound = errors.New("saved filter not found")

// ErrDuplicateName is returned when creating or renaming a filter would
// collide with an existing name.
var ErrDuplicateName = errors.New("a saved filter with this name already exists")

// SavedFilter is a named, persisted filter string. The filter field holds the
// canonical serialized expression; it is re-validated on every write but
// never mutated by the filtering path.
type SavedFilter struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Filter      string    `json:"filter"`
	ProjectID   int64     `json:"projectId,omitempty"`
	IsGlobal    bool      `json:"isGlobal"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// FilterInput carries the caller-supplied fields for create and update.
type FilterInput struct {
	Name        string
	Description string
	Filter      string
	ProjectID   int64
	IsGlobal    bool
}

// Store keeps saved filters for the lifetime of one server session. Names
// are unique within a store.
type Store struct {
	mu      sync.RWMutex
	filters map[string]*SavedFilter
}

// NewStore creates an empty saved-filter store.
func NewStore() *Store {
	return &Store{
		filters: make(map[string]*SavedFilter),
	}
}

// Create validates the filter string, enforces name uniqueness and stores a
// new saved filter.
func (s *Store) Create(ctx context.Context, input FilterInput) (*SavedFilter, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("saved filter name is required")
	}
	if err := checkFilterString(input.Filter); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookupByName(input.Name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, input.Name)
	}

	now := time.Now().UTC()
	saved := &SavedFilter{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Filter:      input.Filter,
		ProjectID:   input.ProjectID,
		IsGlobal:    input.IsGlobal,
		Created:     now,
		Updated:     now,
	}
	s.filters[saved.ID] = saved
	return copyFilter(saved), nil
}

// Get returns the saved filter with the given id.
func (s *Store) Get(ctx context.Context, id string) (*SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved, ok := s.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return copyFilter(saved), nil
}

// FindByName returns the saved filter with the given name.
func (s *Store) FindByName(ctx context.Context, name string) (*SavedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if saved := s.lookupByName(name); saved != nil {
		return copyFilter(saved), nil
	}
	return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
}

// List returns all saved filters sorted by name.
func (s *Store) List(ctx context.Context) []*SavedFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SavedFilter, 0, len(s.filters))
	for _, saved := range s.filters {
		result = append(result, copyFilter(saved))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Update replaces the mutable fields of a saved filter. Empty input fields
// keep their current value.
func (s *Store) Update(ctx context.Context, id string, input FilterInput) (*SavedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, ok := s.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}

	if input.Name != "" && input.Name != saved.Name {
		if existing := s.lookupByName(input.Name); existing != nil && existing.ID != id {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, input.Name)
		}
		saved.Name = input.Name
	}
	if input.Description != "" {
		saved.Description = input.Description
	}
	if input.Filter != "" {
		if err := checkFilterString(input.Filter); err != nil {
			return nil, err
		}
		saved.Filter = input.Filter
	}
	if input.ProjectID != 0 {
		saved.ProjectID = input.ProjectID
	}
	saved.Updated = time.Now().UTC()

	return copyFilter(saved), nil
}

// Delete removes a saved filter.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filters[id]; !ok {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	delete(s.filters, id)
	return nil
}

// lookupByName must be called with the lock held.
func (s *Store) lookupByName(name string) *SavedFilter {
	for _, saved := range s.filters {
		if strings.EqualFold(saved.Name, name) {
			return saved
		}
	}
	return nil
}

func copyFilter(saved *SavedFilter) *SavedFilter {
	clone := *saved
	return &clone
}

// checkFilterString ensures the stored filter both parses and validates, so
// a saved filter can always be resolved later without surprises.
func checkFilterString(input string) error {
	expr, err := filter.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	if result := filter.Validate(expr); !result.Valid {
		return fmt.Errorf("invalid filter: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}
