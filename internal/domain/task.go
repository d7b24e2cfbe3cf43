package domain

import "time"

// TaskStatus represents whether a case record is open for work.
type TaskStatus string

const (
	TaskStatusActive   TaskStatus = "active"
	TaskStatusInactive TaskStatus = "inactive"
)

// TaskCategory represents the kind of case.
type TaskCategory string

const (
	TaskCategoryCriminal       TaskCategory = "criminal_case"
	TaskCategoryCivil          TaskCategory = "civil_case"
	TaskCategoryFamily         TaskCategory = "family_case"
	TaskCategoryAdministrative TaskCategory = "administrative_case"
)

// Division represents the court division a case is assigned to.
type Division string

const (
	Division1 Division = "division_1"
	Division2 Division = "division_2"
	Division3 Division = "division_3"
)

// LastAction represents the most recent procedural step on a case.
type LastAction string

const (
	LastActionFiledMotion    LastAction = "filed_motion"
	LastActionReceivedMotion LastAction = "received_motion"
	LastActionCaseClosed     LastAction = "case_closed"
)

// Closed sets for the enumerated task columns. They mirror the PostgreSQL
// enum types created by the initial migration; declaration order matters
// because the first member is the column default.
var (
	TaskStatuses   = MustEnum("status", TaskStatusActive, TaskStatusInactive)
	TaskCategories = MustEnum("category", TaskCategoryCriminal, TaskCategoryCivil, TaskCategoryFamily, TaskCategoryAdministrative)
	Divisions      = MustEnum("assigned_to", Division1, Division2, Division3)
	LastActions    = MustEnum("last_action_taken", LastActionFiledMotion, LastActionReceivedMotion, LastActionCaseClosed)
)

// Task represents a single case-management record.
type Task struct {
	ID              string       `json:"id"`
	Title           *string      `json:"title"`
	Status          TaskStatus   `json:"status"`
	Category        TaskCategory `json:"category"`
	AssignedTo      Division     `json:"assigned_to"`
	LastActionTaken LastAction   `json:"last_action_taken"`
	LastActionDate  time.Time    `json:"last_action_date"`
}

// TitleOrEmpty returns the title, or "" for untitled records.
func (t *Task) TitleOrEmpty() string {
	if t.Title == nil {
		return ""
	}
	return *t.Title
}

// TaskPage is one page of the listing plus the metadata needed to render pagination.
type TaskPage struct {
	Tasks     []*Task `json:"tasks"`
	Total     int     `json:"total"`
	PageCount int     `json:"page_count"`
}

// EmptyPage is the result served when a listing cannot be produced.
func EmptyPage() *TaskPage {
	return &TaskPage{Tasks: []*Task{}}
}

// PageCount returns ceil(total / perPage), or 0 when nothing matched.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// EnumColumns returns the members of every enumerated column keyed by column name.
func EnumColumns() map[string][]string {
	return map[string][]string{
		TaskStatuses.Name():   TaskStatuses.Strings(),
		TaskCategories.Name(): TaskCategories.Strings(),
		Divisions.Name():      Divisions.Strings(),
		LastActions.Name():    LastActions.Strings(),
	}
}

// TaskStats counts rows per member of each enumerated column, the numbers
// shown next to the grid's faceted filter options.
type TaskStats struct {
	Total  int                       `json:"total"`
	Facets map[string]map[string]int `json:"facets"`
}

// NewTaskStats returns stats with a zero count for every enum member.
func NewTaskStats() *TaskStats {
	stats := &TaskStats{Facets: make(map[string]map[string]int)}
	for column, members := range EnumColumns() {
		counts := make(map[string]int, len(members))
		for _, m := range members {
			counts[m] = 0
		}
		stats.Facets[column] = counts
	}
	return stats
}
