// Package sqlite is the embedded storage backend (STORAGE=sqlite). It runs on
// the pure-Go modernc.org/sqlite driver, so it needs neither cgo nor a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"userprofile-service/internal/application"
	infraconfig "userprofile-service/internal/infrastructure/config"

	_ "modernc.org/sqlite"
)

var _ application.SessionFactory = (*DB)(nil)

// timeLayout is how created_at is stored; the column is TEXT.
const timeLayout = time.RFC3339Nano

const defaultBusyTimeout = 5 * time.Second

type DB struct {
	SQL              *sql.DB
	StatementTimeout time.Duration
}

// execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Option func(*DB)

// WithStatementTimeout bounds every statement, including the wait for a
// lock held by another connection.
func WithStatementTimeout(d time.Duration) Option {
	return func(db *DB) { db.StatementTimeout = d }
}

// Open migrates the database file at path and opens a pool on it.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}
	db := &DB{StatementTimeout: infraconfig.DefaultStatementTimeout}
	for _, opt := range opts {
		opt(db)
	}
	sqldb, err := sql.Open("sqlite", dsn(path, busyTimeout(db.StatementTimeout)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(infraconfig.DefaultSQLiteMaxConns)
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SQL = sqldb
	return db, nil
}

// New wraps an already opened handle. The schema must exist.
func New(sqldb *sql.DB) *DB {
	return &DB{SQL: sqldb, StatementTimeout: infraconfig.DefaultStatementTimeout}
}

func (d *DB) Close() error                   { return d.SQL.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.SQL.PingContext(ctx) }

// dsn enables foreign keys and a busy timeout on every pooled connection.
// Transactions take the write lock at BEGIN so concurrent units of work queue
// on busy_timeout instead of failing on lock upgrade.
func dsn(path string, busy time.Duration) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate",
		path, busy.Milliseconds())
}

// busyTimeout is how long a connection waits for another one's lock. The
// driver does not interrupt that wait on context cancellation, so it must not
// outlast the statement deadline.
func busyTimeout(stmt time.Duration) time.Duration {
	if stmt <= 0 {
		return defaultBusyTimeout
	}
	return stmt
}

func (d *DB) execer(sess application.Session) (execer, error) {
	if sess == nil {
		return d.SQL, nil
	}
	s, ok := sess.(*Session)
	if !ok {
		return nil, application.ErrForeignSession
	}
	return s.execer()
}

func (d *DB) stmtCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.StatementTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.StatementTimeout)
}

// sqlTime scans created_at whether the driver hands back text or a time.
type sqlTime struct{ t *time.Time }

func (s sqlTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*s.t = x.UTC()
		return nil
	case string:
		return s.parse(x)
	case []byte:
		return s.parse(string(x))
	case nil:
		*s.t = time.Time{}
		return nil
	}
	return fmt.Errorf("sqlite: cannot scan %T into time", v)
}

func (s sqlTime) parse(v string) error {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return err
	}
	*s.t = t.UTC()
	return nil
}
