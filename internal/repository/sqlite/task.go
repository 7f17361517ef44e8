package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

var _ repository.TaskRepository = (*TaskDB)(nil)

// TaskDB stores tasks in the tasks table.
//
// Every method takes an owner; an empty owner matches all rows.
type TaskDB struct {
	conn *sql.DB
}

const taskColumns = `id, text, done, owner, created_at, updated_at`

// ownerFilter appends the owner condition to a WHERE clause that already has
// at least one predicate.
func ownerFilter(query string, args []any, owner string) (string, []any) {
	if owner == "" {
		return query, args
	}
	return query + ` AND owner = ?`, append(args, owner)
}

// Create inserts task with Done=false, assigning its ID and timestamps.
func (t *TaskDB) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	task.ID = xid.New().String()
	task.Done = false
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := t.conn.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Text,
		task.Done,
		task.Owner,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task: %w", err)
	}
	return nil
}

// List returns tasks in insertion order. The result is never nil.
func (t *TaskDB) List(ctx context.Context, owner string) ([]model.Task, error) {
	query, args := ownerFilter(`SELECT `+taskColumns+` FROM tasks WHERE 1 = 1`, nil, owner)

	rows, err := t.conn.QueryContext(ctx, query+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(
			&task.ID, &task.Text, &task.Done, &task.Owner,
			&task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}

	return tasks, nil
}

// MarkDone sets done on the task and returns it as stored after the update.
// Marking an already done task succeeds and leaves it done.
func (t *TaskDB) MarkDone(ctx context.Context, owner, id string) (*model.Task, error) {
	query, args := ownerFilter(
		`UPDATE tasks SET done = 1, updated_at = ? WHERE id = ?`,
		[]any{time.Now().UTC(), id}, owner,
	)

	result, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: marking task %s done: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("task", id)
	}

	return t.get(ctx, t.conn, id)
}

// Delete removes one task and returns it as it was before removal.
func (t *TaskDB) Delete(ctx context.Context, owner, id string) (*model.Task, error) {
	tx, err := t.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	task, err := t.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if owner != "" && task.Owner != owner {
		return nil, apperror.NotFound("task", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return task, nil
}

// DeleteAll removes every task of owner and reports how many were removed.
func (t *TaskDB) DeleteAll(ctx context.Context, owner string) (int64, error) {
	query, args := ownerFilter(`DELETE FROM tasks WHERE 1 = 1`, nil, owner)

	result, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting tasks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t *TaskDB) get(ctx context.Context, q queryer, id string) (*model.Task, error) {
	var task model.Task
	err := q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id,
	).Scan(
		&task.ID, &task.Text, &task.Done, &task.Owner,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return &task, nil
}
