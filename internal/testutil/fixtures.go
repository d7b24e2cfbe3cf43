package testutil

import (
	"time"

	"github.com/mtlprog/casegrid/internal/domain"
)

// FixtureTime is the last_action_date of tasks built by NewTask.
var FixtureTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// TaskOption customizes a fixture task.
type TaskOption func(*domain.Task)

// WithStatus sets the status.
func WithStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) { t.Status = s }
}

// WithCategory sets the category.
func WithCategory(c domain.TaskCategory) TaskOption {
	return func(t *domain.Task) { t.Category = c }
}

// WithDivision sets the assigned division.
func WithDivision(d domain.Division) TaskOption {
	return func(t *domain.Task) { t.AssignedTo = d }
}

// WithLastAction sets the last action taken.
func WithLastAction(a domain.LastAction) TaskOption {
	return func(t *domain.Task) { t.LastActionTaken = a }
}

// WithLastActionDate sets the last action date.
func WithLastActionDate(at time.Time) TaskOption {
	return func(t *domain.Task) { t.LastActionDate = at }
}

// Untitled clears the title.
func Untitled() TaskOption {
	return func(t *domain.Task) { t.Title = nil }
}

// NewTask builds a task with the column defaults and the given title.
func NewTask(id, title string, opts ...TaskOption) *domain.Task {
	t := &domain.Task{
		ID:              id,
		Title:           &title,
		Status:          domain.TaskStatuses.Default(),
		Category:        domain.TaskCategories.Default(),
		AssignedTo:      domain.Divisions.Default(),
		LastActionTaken: domain.LastActions.Default(),
		LastActionDate:  FixtureTime,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
