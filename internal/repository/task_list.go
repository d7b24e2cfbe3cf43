package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/mtlprog/casegrid/internal/domain"
)

// fallbackSort is applied when the requested sort column is not a task column.
var fallbackSort = domain.Sort{Column: "id", Direction: domain.SortDesc}

// listTxOptions gives the page and count queries one shared snapshot.
var listTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// resolveSort maps the requested sort onto a known column.
func resolveSort(s domain.Sort) domain.Sort {
	if !isTaskColumn(s.Column) {
		return fallbackSort
	}
	if s.Direction != domain.SortAsc {
		s.Direction = domain.SortDesc
	}
	return s
}

// orderBy returns ORDER BY clauses: the resolved sort, then id as a tiebreaker
// so pages never overlap when the sort column has duplicates.
func orderBy(s domain.Sort) []string {
	s = resolveSort(s)
	clauses := []string{fmt.Sprintf("%s %s", s.Column, directionSQL(s.Direction))}
	if s.Column != "id" {
		clauses = append(clauses, "id "+directionSQL(s.Direction))
	}
	return clauses
}

func directionSQL(d domain.SortDirection) string {
	if d == domain.SortAsc {
		return "ASC"
	}
	return "DESC"
}

// listQueries builds the page select and the matching count select.
func listQueries(q domain.TaskQuery) (sq.SelectBuilder, sq.SelectBuilder, error) {
	if q.PerPage <= 0 || q.Offset() < 0 {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, fmt.Errorf("invalid page window: offset %d, limit %d", q.Offset(), q.PerPage)
	}

	where, err := Compile(q.Operator, predicatesFor(q))
	if err != nil {
		return sq.SelectBuilder{}, sq.SelectBuilder{}, err
	}

	page := psql.Select(taskColumns...).
		From(tasksTable).
		Where(where).
		OrderBy(orderBy(q.Sort)...).
		Limit(uint64(q.PerPage)).
		Offset(uint64(q.Offset()))

	count := psql.Select("COUNT(*)").
		From(tasksTable).
		Where(where)

	return page, count, nil
}

// List retrieves one page of tasks and the total number of tasks matching the
// same filters. Both queries run in one read-only repeatable-read transaction,
// so the count describes the same snapshot as the page.
func (r *TaskRepository) List(ctx context.Context, q domain.TaskQuery) ([]*domain.Task, int, error) {
	pageQb, countQb, err := listQueries(q)
	if err != nil {
		return nil, 0, fmt.Errorf("plan List query: %w", err)
	}

	query, args, err := pageQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build List query: %w", err)
	}
	countQuery, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, listTxOptions)
	if err != nil {
		return nil, 0, storageErr("begin transaction", err)
	}
	defer rollback(ctx, tx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, storageErr("query tasks", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, 0, storageErr("query tasks", err)
	}

	var total int
	if err := tx.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, storageErr("count tasks", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, storageErr("commit transaction", err)
	}

	return tasks, total, nil
}
