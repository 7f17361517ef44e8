// Package sqlite implements the repository interfaces on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// WHY SQLITE AS THE DEFAULT?
// A task list for one server needs no database server. SQLite is a single
// file next to the binary, and ":memory:" gives every test its own private
// database. MongoDB is available (see repository/mongo) for deployments that
// already run it.
//
// WHY GOOSE?
// The schema lives in migrations/*.sql, embedded into the binary with
// go:embed. goose records which files have run in goose_db_version, so New
// can apply pending migrations on every start and a fresh file (or
// ":memory:") is ready to use immediately. Adding a column is a new numbered
// file, never an edit to an old one.
//
// CONCURRENT WRITERS:
// sql.DB is a pool, and SQLite allows one writer at a time. Pragmas set with
// a plain Exec only reach the connection that ran it, so they go in the DSN
// instead, where the driver applies them to every new connection:
//   - busy_timeout(5000)  a writer waits up to 5s for the lock instead of
//     failing at once with SQLITE_BUSY
//   - journal_mode(WAL)   readers never block the writer
//   - foreign_keys(1)     tasks.owner must reference a user
//
// _txlock=immediate makes BEGIN take the write lock up front, so a
// read-then-write transaction waits for its turn rather than failing
// halfway.
//
// Usage:
//
//	db, err := sqlite.New(ctx, "data/tasklist.db")
//	if err != nil { ... }
//	defer db.Close()
//
//	users, tasks := db.Users(), db.Tasks()
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB wraps the connection pool. Repositories are obtained with Users and
// Tasks; they share the pool.
type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the database at dbPath, configures it and
// applies pending migrations.
//
// dbPath examples:
//   - "data/tasklist.db"  file-backed, persistent
//   - ":memory:"          private in-memory database, gone on Close
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is its own database, so the pool must
	// never open a second one.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return newFromConn(conn), nil
}

// connParams are applied by the driver to every pooled connection.
const connParams = "_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(1)" +
	"&_txlock=immediate"

// dsn appends connParams to dbPath. Without a "file:" prefix the driver
// strips the query before opening, so plain paths and ":memory:" both work.
func dsn(dbPath string) string {
	return dbPath + "?" + connParams
}

// newFromConn wraps an already configured pool without migrating it.
// Tests use it with go-sqlmock.
func newFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Tasks returns the task repository backed by this database.
func (db *DB) Tasks() *TaskDB {
	return &TaskDB{conn: db.conn}
}

func migrate(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and,
// if so, which column ("users.email" yields "email").
func uniqueViolation(err error) (string, bool) {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	if sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE &&
		sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}

	// Message format: "UNIQUE constraint failed: users.email"
	msg := sqliteErr.Error()
	_, cols, found := strings.Cut(msg, "UNIQUE constraint failed: ")
	if !found {
		return "", false
	}
	_, column, _ := strings.Cut(cols, ".")
	if i := strings.IndexAny(column, " ,("); i >= 0 {
		column = column[:i]
	}
	return column, true
}
