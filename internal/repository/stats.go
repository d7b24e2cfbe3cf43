package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/mtlprog/casegrid/internal/domain"
)

// Stats counts tasks in total and per member of every enumerated column.
// All counts are read from one snapshot.
func (r *TaskRepository) Stats(ctx context.Context) (*domain.TaskStats, error) {
	stats := domain.NewTaskStats()

	totalQuery, _, err := psql.Select("COUNT(*)").From(tasksTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats total query: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, listTxOptions)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer rollback(ctx, tx)

	if err := tx.QueryRow(ctx, totalQuery).Scan(&stats.Total); err != nil {
		return nil, storageErr("count tasks", err)
	}

	columns := make([]string, 0, len(stats.Facets))
	for column := range stats.Facets {
		columns = append(columns, column)
	}
	slices.Sort(columns)

	for _, column := range columns {
		query, _, err := psql.
			Select(column+"::text", "COUNT(*)").
			From(tasksTable).
			GroupBy(column).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build %s stats query: %w", column, err)
		}

		rows, err := tx.Query(ctx, query)
		if err != nil {
			return nil, storageErr("query "+column+" stats", err)
		}

		counts := stats.Facets[column]
		for rows.Next() {
			var member string
			var count int
			if err := rows.Scan(&member, &count); err != nil {
				rows.Close()
				return nil, storageErr("scan "+column+" stats", err)
			}
			counts[member] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, storageErr("iterate "+column+" stats", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit transaction", err)
	}

	return stats, nil
}
