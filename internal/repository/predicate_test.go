package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/casegrid/internal/domain"
)

func TestCompile_NoPredicatesMatchesAll(t *testing.T) {
	for _, c := range []domain.Combinator{domain.CombinatorAnd, domain.CombinatorOr} {
		where, err := Compile(c, nil)
		require.NoError(t, err)

		sql, args, err := where.ToSql()
		require.NoError(t, err)
		assert.Equal(t, "TRUE", sql)
		assert.Empty(t, args)
	}
}

func TestCompile_AllOfAndAnyOf(t *testing.T) {
	preds := []Predicate{
		{Column: "status", Op: OpIn, Value: []string{"active", "inactive"}},
		{Column: "category", Op: OpIn, Value: []string{"criminal_case"}},
	}

	and, err := Compile(domain.CombinatorAnd, preds)
	require.NoError(t, err)
	sql, args, err := and.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(status IN (?,?) AND category IN (?))", sql)
	assert.Equal(t, []any{"active", "inactive", "criminal_case"}, args)

	or, err := Compile(domain.CombinatorOr, preds)
	require.NoError(t, err)
	sql, _, err = or.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(status IN (?,?) OR category IN (?))", sql)
}

func TestCompile_RejectsUnknownColumn(t *testing.T) {
	_, err := Compile(domain.CombinatorAnd, []Predicate{
		{Column: "title; DROP TABLE tasks", Op: OpEq, Value: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter column")
}

func TestCompile_RejectsUnknownOperator(t *testing.T) {
	_, err := Compile(domain.CombinatorAnd, []Predicate{{Column: "title", Op: "regex", Value: "x"}})
	require.Error(t, err)
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	where, err := Compile(domain.CombinatorAnd, []Predicate{{Column: "status", Op: OpIn, Value: []string{}}})
	require.NoError(t, err)

	sql, args, err := where.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(FALSE)", sql)
	assert.Empty(t, args)
}

func TestTitlePredicate_Operators(t *testing.T) {
	tests := []struct {
		name    string
		filter  domain.TextFilter
		wantSQL string
		args    []any
	}{
		{"default substring", domain.TextFilter{Value: "motion", Operator: domain.TextILike}, "title ILIKE ?", []any{"%motion%"}},
		{"not substring", domain.TextFilter{Value: "motion", Operator: domain.TextNotILike}, "title NOT ILIKE ?", []any{"%motion%"}},
		{"starts with", domain.TextFilter{Value: "Use", Operator: domain.TextStartsWith}, "title ILIKE ?", []any{"Use%"}},
		{"ends with", domain.TextFilter{Value: "bus", Operator: domain.TextEndsWith}, "title ILIKE ?", []any{"%bus"}},
		{"equals", domain.TextFilter{Value: "Exact", Operator: domain.TextEq}, "title = ?", []any{"Exact"}},
		{"not equals", domain.TextFilter{Value: "Exact", Operator: domain.TextNotEq}, "title <> ?", []any{"Exact"}},
		{"is null", domain.TextFilter{Operator: domain.TextIsNull}, "title IS NULL", nil},
		{"is not null", domain.TextFilter{Operator: domain.TextIsNotNull}, "title IS NOT NULL", nil},
		{"metacharacters escaped", domain.TextFilter{Value: `50%_off\`, Operator: domain.TextILike}, "title ILIKE ?", []any{`%50\%\_off\\%`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := titlePredicate(tt.filter)
			require.True(t, ok)

			part, err := p.sqlizer()
			require.NoError(t, err)

			sql, args, err := part.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestTitlePredicate_EmptyValueIsAbsent(t *testing.T) {
	_, ok := titlePredicate(domain.TextFilter{Value: "", Operator: domain.TextILike})
	assert.False(t, ok)
}

func TestPredicatesFor(t *testing.T) {
	q := domain.TaskQuery{
		Title: &domain.TextFilter{Value: "bus", Operator: domain.TextILike},
		Filters: []domain.EnumFilter{
			{Column: "status", Values: []string{"active"}},
			{Column: "category", Values: nil},
		},
	}

	preds := predicatesFor(q)
	require.Len(t, preds, 3)
	assert.Equal(t, Predicate{Column: "title", Op: OpILike, Value: "%bus%"}, preds[0])
	assert.Equal(t, Predicate{Column: "status", Op: OpIn, Value: []string{"active"}}, preds[1])
	assert.Equal(t, Predicate{Column: "category", Op: OpNone}, preds[2])
}
