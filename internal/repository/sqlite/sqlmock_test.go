package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
)

// Failure paths that a real SQLite file cannot be coaxed into are driven
// through go-sqlmock.

var errDisk = errors.New("disk I/O error")

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return newFromConn(conn), mock
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		expect func(m sqlmock.Sqlmock)
		call   func(db *DB) error
	}{
		{
			name:   "user insert",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec("INSERT INTO users").WillReturnError(errDisk) },
			call: func(db *DB) error {
				return db.Users().Create(ctx, &model.User{Username: "a", Email: "b", PasswordHash: "c"})
			},
		},
		{
			name:   "user lookup",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery("SELECT .+ FROM users").WillReturnError(errDisk) },
			call: func(db *DB) error {
				_, err := db.Users().GetByUsername(ctx, "a")
				return err
			},
		},
		{
			name:   "task insert",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec("INSERT INTO tasks").WillReturnError(errDisk) },
			call: func(db *DB) error {
				return db.Tasks().Create(ctx, &model.Task{Text: "x", Owner: "o"})
			},
		},
		{
			name:   "task list",
			expect: func(m sqlmock.Sqlmock) { m.ExpectQuery("SELECT .+ FROM tasks").WillReturnError(errDisk) },
			call: func(db *DB) error {
				_, err := db.Tasks().List(ctx, "o")
				return err
			},
		},
		{
			name:   "task update",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec("UPDATE tasks SET done").WillReturnError(errDisk) },
			call: func(db *DB) error {
				_, err := db.Tasks().MarkDone(ctx, "o", "id")
				return err
			},
		},
		{
			name: "task delete",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery("SELECT .+ FROM tasks WHERE id").WillReturnError(errDisk)
				m.ExpectRollback()
			},
			call: func(db *DB) error {
				_, err := db.Tasks().Delete(ctx, "o", "id")
				return err
			},
		},
		{
			name:   "task delete all",
			expect: func(m sqlmock.Sqlmock) { m.ExpectExec("DELETE FROM tasks").WillReturnError(errDisk) },
			call: func(db *DB) error {
				_, err := db.Tasks().DeleteAll(ctx, "o")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.expect(mock)

			err := tt.call(db)
			if err == nil {
				t.Fatal("expected an error")
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				t.Errorf("store failure surfaced as %v, want an opaque error", appErr.Err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMarkDone_ZeroRowsIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE tasks SET done").
		WithArgs(sqlmock.AnyArg(), "id", "o").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := db.Tasks().MarkDone(context.Background(), "o", "id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("MarkDone() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteAll_CommitsCount(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE 1 = 1 AND owner = ?")).
		WithArgs("o").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := db.Tasks().DeleteAll(context.Background(), "o")
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteAll() = %d, want 3", n)
	}
}
