// Package testutil provides in-memory fakes for tests that do not need PostgreSQL.
package testutil

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mtlprog/casegrid/internal/domain"
)

// MemoryStore is an in-memory task store that evaluates listing queries the
// way the PostgreSQL repository does: NULL titles sort last ascending, enum
// columns sort by declaration order and id breaks ties.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task

	// Injected failures. A non-nil error is returned by the matching method
	// without touching the data.
	ListErr   error
	StatsErr  error
	UpdateErr error
	DeleteErr error
	SeedErr   error

	ListCalls int
}

// NewMemoryStore creates a store holding copies of tasks.
func NewMemoryStore(tasks ...*domain.Task) *MemoryStore {
	s := &MemoryStore{tasks: make(map[string]*domain.Task)}
	for _, t := range tasks {
		s.put(t)
	}
	return s
}

func (s *MemoryStore) put(t *domain.Task) {
	cp := *t
	if t.Title != nil {
		title := *t.Title
		cp.Title = &title
	}
	s.tasks[t.ID] = &cp
}

// Get returns a copy of the task with the given id.
func (s *MemoryStore) Get(id string) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// Len returns the number of stored tasks.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// List returns one page of matching tasks and the total match count.
func (s *MemoryStore) List(_ context.Context, q domain.TaskQuery) ([]*domain.Task, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListCalls++
	if s.ListErr != nil {
		return nil, 0, s.ListErr
	}

	matched := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if matches(t, q) {
			cp := *t
			matched = append(matched, &cp)
		}
	}

	column, dir := resolveSort(q.Sort)
	slices.SortFunc(matched, func(a, b *domain.Task) int {
		c := compareColumn(column, a, b)
		if c == 0 && column != "id" {
			c = strings.Compare(a.ID, b.ID)
		}
		if dir == domain.SortDesc {
			return -c
		}
		return c
	})

	if q.Offset() < 0 || q.PerPage <= 0 {
		return nil, 0, fmt.Errorf("invalid page window: offset %d, limit %d", q.Offset(), q.PerPage)
	}

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PerPage, total)
	return matched[start:end], total, nil
}

// Stats counts stored tasks per enum member.
func (s *MemoryStore) Stats(_ context.Context) (*domain.TaskStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StatsErr != nil {
		return nil, s.StatsErr
	}

	stats := domain.NewTaskStats()
	stats.Total = len(s.tasks)
	for _, t := range s.tasks {
		for column, counts := range stats.Facets {
			counts[enumValue(column, t)]++
		}
	}
	return stats, nil
}

// UpdateStatus sets the status of one task.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status domain.TaskStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return 0, s.UpdateErr
	}
	t, ok := s.tasks[id]
	if !ok {
		return 0, nil
	}
	t.Status = status
	return 1, nil
}

// Delete removes one task and inserts replacements.
func (s *MemoryStore) Delete(_ context.Context, id string, replacements []*domain.Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DeleteErr != nil {
		return 0, s.DeleteErr
	}

	var deleted int64
	if _, ok := s.tasks[id]; ok {
		delete(s.tasks, id)
		deleted = 1
	}
	for _, t := range replacements {
		s.put(t)
	}
	return deleted, nil
}

// Seed inserts tasks, clearing the store first when reset is set.
func (s *MemoryStore) Seed(_ context.Context, tasks []*domain.Task, reset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SeedErr != nil {
		return s.SeedErr
	}
	if reset {
		s.tasks = make(map[string]*domain.Task)
	}
	for _, t := range tasks {
		s.put(t)
	}
	return nil
}

func matches(t *domain.Task, q domain.TaskQuery) bool {
	var results []bool
	if q.Title != nil {
		results = append(results, matchTitle(t.Title, *q.Title))
	}
	for _, f := range q.Filters {
		results = append(results, slices.Contains(f.Values, enumValue(f.Column, t)))
	}

	if len(results) == 0 {
		return true
	}
	if q.Operator == domain.CombinatorOr {
		return slices.Contains(results, true)
	}
	return !slices.Contains(results, false)
}

func matchTitle(title *string, f domain.TextFilter) bool {
	switch f.Operator {
	case domain.TextIsNull:
		return title == nil
	case domain.TextIsNotNull:
		return title != nil
	}
	if title == nil {
		return false
	}

	value := strings.ToLower(*title)
	needle := strings.ToLower(f.Value)
	switch f.Operator {
	case domain.TextNotILike:
		return !strings.Contains(value, needle)
	case domain.TextStartsWith:
		return strings.HasPrefix(value, needle)
	case domain.TextEndsWith:
		return strings.HasSuffix(value, needle)
	case domain.TextEq:
		return *title == f.Value
	case domain.TextNotEq:
		return *title != f.Value
	default:
		return strings.Contains(value, needle)
	}
}

func enumValue(column string, t *domain.Task) string {
	switch column {
	case "status":
		return string(t.Status)
	case "category":
		return string(t.Category)
	case "assigned_to":
		return string(t.AssignedTo)
	case "last_action_taken":
		return string(t.LastActionTaken)
	}
	return ""
}

var enumOrder = domain.EnumColumns()

func resolveSort(s domain.Sort) (string, domain.SortDirection) {
	switch s.Column {
	case "id", "title", "last_action_date":
		return s.Column, s.Direction
	}
	if _, ok := enumOrder[s.Column]; ok {
		return s.Column, s.Direction
	}
	return "id", domain.SortDesc
}

func compareColumn(column string, a, b *domain.Task) int {
	switch column {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "title":
		switch {
		case a.Title == nil && b.Title == nil:
			return 0
		case a.Title == nil:
			return 1
		case b.Title == nil:
			return -1
		}
		return strings.Compare(*a.Title, *b.Title)
	case "last_action_date":
		return a.LastActionDate.Compare(b.LastActionDate)
	}
	order := enumOrder[column]
	return cmp.Compare(slices.Index(order, enumValue(column, a)), slices.Index(order, enumValue(column, b)))
}
