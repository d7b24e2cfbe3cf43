package repository

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/casegrid/internal/domain"
)

const tasksTable = "tasks"

// taskColumns is the shared list of columns for task queries. It doubles as
// the allowlist for filter and sort columns.
var taskColumns = []string{
	"id", "title", "status", "category", "assigned_to",
	"last_action_taken", "last_action_date",
}

func isTaskColumn(name string) bool {
	for _, c := range taskColumns {
		if c == name {
			return true
		}
	}
	return false
}

// TaskRepository handles database operations for tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Status,
		&task.Category,
		&task.AssignedTo,
		&task.LastActionTaken,
		&task.LastActionDate,
	)
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// rollback is deferred after Begin; it is a no-op once the transaction is committed.
func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
		slog.Error("failed to rollback transaction", "error", err)
	}
}

func storageErr(op string, err error) error {
	return &domain.StorageError{Op: op, Err: err}
}

// GetByID retrieves a task by ID. The boolean is false when no row exists.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, bool, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From(tasksTable).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build GetByID query for task: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, storageErr("get task", err)
	}
	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, false, storageErr("get task", err)
	}
	if len(tasks) == 0 {
		return nil, false, nil
	}
	return tasks[0], true, nil
}

// Count returns the total number of rows in the table.
func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(tasksTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build Count query: %w", err)
	}

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, storageErr("count tasks", err)
	}
	return total, nil
}

// UpdateStatus sets the status of the task with the given ID in its own
// transaction. Unknown IDs are not an error; the returned count is then 0.
// No version check is made, so concurrent updates are last-writer-wins.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, status domain.TaskStatus) (int64, error) {
	query, args, err := psql.
		Update(tasksTable).
		Set("status", status).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build UpdateStatus query for task %s: %w", taskID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, storageErr("update task status", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr("commit transaction", err)
	}

	return tag.RowsAffected(), nil
}

// Delete removes the task with the given ID and inserts replacements in the
// same transaction. Either both happen or neither does. The returned count is
// the number of rows deleted.
func (r *TaskRepository) Delete(ctx context.Context, taskID string, replacements []*domain.Task) (int64, error) {
	query, args, err := psql.
		Delete(tasksTable).
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storageErr("begin transaction", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, storageErr("delete task", err)
	}

	if err := insertTasks(ctx, tx, replacements); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageErr("commit transaction", err)
	}

	return tag.RowsAffected(), nil
}

// Seed inserts tasks in one transaction, optionally removing every existing row first.
func (r *TaskRepository) Seed(ctx context.Context, tasks []*domain.Task, reset bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer rollback(ctx, tx)

	if reset {
		query, args, err := psql.Delete(tasksTable).ToSql()
		if err != nil {
			return fmt.Errorf("build reset query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storageErr("reset tasks", err)
		}
	}

	if err := insertTasks(ctx, tx, tasks); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// insertBatchSize keeps each INSERT well below PostgreSQL's 65535 bind parameter limit.
const insertBatchSize = 1000

func insertTasks(ctx context.Context, tx pgx.Tx, tasks []*domain.Task) error {
	for start := 0; start < len(tasks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(tasks))

		query, args, err := insertQuery(tasks[start:end]).ToSql()
		if err != nil {
			return fmt.Errorf("build insert query: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return storageErr("insert tasks", err)
		}
	}
	return nil
}

func insertQuery(tasks []*domain.Task) sq.InsertBuilder {
	qb := psql.Insert(tasksTable).Columns(taskColumns...)
	for _, t := range tasks {
		qb = qb.Values(
			t.ID,
			t.Title,
			t.Status,
			t.Category,
			t.AssignedTo,
			t.LastActionTaken,
			t.LastActionDate,
		)
	}
	return qb
}
