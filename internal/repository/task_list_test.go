package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/casegrid/internal/domain"
)

func TestResolveSort(t *testing.T) {
	tests := []struct {
		name string
		in   domain.Sort
		want domain.Sort
	}{
		{"known column asc", domain.Sort{Column: "category", Direction: domain.SortAsc}, domain.Sort{Column: "category", Direction: domain.SortAsc}},
		{"known column desc", domain.Sort{Column: "title", Direction: domain.SortDesc}, domain.Sort{Column: "title", Direction: domain.SortDesc}},
		{"unknown direction", domain.Sort{Column: "title", Direction: "sideways"}, domain.Sort{Column: "title", Direction: domain.SortDesc}},
		{"unknown column", domain.Sort{Column: "priority", Direction: domain.SortAsc}, fallbackSort},
		{"injection attempt", domain.Sort{Column: "title;DROP TABLE tasks;--", Direction: domain.SortAsc}, fallbackSort},
		{"empty column", domain.Sort{}, fallbackSort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSort(tt.in))
		})
	}
}

func TestOrderBy_AddsIDTiebreaker(t *testing.T) {
	assert.Equal(t, []string{"title DESC", "id DESC"}, orderBy(domain.Sort{Column: "title", Direction: domain.SortDesc}))
	assert.Equal(t, []string{"last_action_date ASC", "id ASC"}, orderBy(domain.Sort{Column: "last_action_date", Direction: domain.SortAsc}))
	assert.Equal(t, []string{"id DESC"}, orderBy(domain.Sort{Column: "nope", Direction: domain.SortAsc}))
}

func TestListQueries_PageAndCountShareFilters(t *testing.T) {
	q := domain.TaskQuery{
		Page:    3,
		PerPage: 20,
		Sort:    domain.Sort{Column: "title", Direction: domain.SortDesc},
		Title:   &domain.TextFilter{Value: "bus", Operator: domain.TextILike},
		Filters: []domain.EnumFilter{
			{Column: "status", Values: []string{"active", "inactive"}},
		},
		Operator: domain.CombinatorOr,
	}

	page, count, err := listQueries(q)
	require.NoError(t, err)

	pageSQL, pageArgs, err := page.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, title, status, category, assigned_to, last_action_taken, last_action_date FROM tasks "+
			"WHERE (title ILIKE $1 OR status IN ($2,$3)) ORDER BY title DESC, id DESC LIMIT 20 OFFSET 40",
		pageSQL)
	assert.Equal(t, []any{"%bus%", "active", "inactive"}, pageArgs)

	countSQL, countArgs, err := count.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM tasks WHERE (title ILIKE $1 OR status IN ($2,$3))", countSQL)
	assert.Equal(t, pageArgs, countArgs)
}

func TestListQueries_NoFiltersMatchesAll(t *testing.T) {
	page, _, err := listQueries(domain.TaskQuery{
		Page:     1,
		PerPage:  10,
		Sort:     domain.Sort{Column: "title", Direction: domain.SortDesc},
		Operator: domain.CombinatorAnd,
	})
	require.NoError(t, err)

	sql, args, err := page.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE TRUE ORDER BY title DESC, id DESC LIMIT 10 OFFSET 0")
	assert.Empty(t, args)
}

func TestListQueries_RejectsInvalidWindow(t *testing.T) {
	_, _, err := listQueries(domain.TaskQuery{Page: 0, PerPage: 10})
	require.Error(t, err)

	_, _, err = listQueries(domain.TaskQuery{Page: 1, PerPage: 0})
	require.Error(t, err)
}

func TestInsertQuery(t *testing.T) {
	title := "Quantify the neural bus"
	sql, args, err := insertQuery([]*domain.Task{
		{ID: "a", Title: &title, Status: domain.TaskStatusActive, Category: domain.TaskCategoryCivil, AssignedTo: domain.Division2, LastActionTaken: domain.LastActionCaseClosed},
		{ID: "b", Status: domain.TaskStatusInactive, Category: domain.TaskCategoryFamily, AssignedTo: domain.Division3, LastActionTaken: domain.LastActionFiledMotion},
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO tasks (id,title,status,category,assigned_to,last_action_taken,last_action_date) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)",
		sql)
	assert.Len(t, args, 14)
	assert.Equal(t, "b", args[7])
}
