package pg

import (
	"context"
	"time"

	"userprofile-service/internal/application"
	infraconfig "userprofile-service/internal/infrastructure/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ application.SessionFactory = (*DB)(nil)

// DB is the Postgres persistence handle. Pool serves single statements;
// NewSession pins one pooled connection for a transaction.
type DB struct {
	Pool *pgxpool.Pool
	// StatementTimeout bounds every statement issued through this DB or its
	// sessions. Zero disables it.
	StatementTimeout time.Duration
}

// querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns, cfg.MinConns = infraconfig.DefaultPGMaxConns, infraconfig.DefaultPGMinConns
	cfg.MaxConnIdleTime = 2 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool, StatementTimeout: infraconfig.DefaultStatementTimeout}, nil
}

func (d *DB) Close()                         { d.Pool.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }

// querier picks where a statement runs: the pool when sess is nil, otherwise
// the session's connection or open transaction.
func (d *DB) querier(sess application.Session) (querier, error) {
	if sess == nil {
		return d.Pool, nil
	}
	s, ok := sess.(*Session)
	if !ok {
		return nil, application.ErrForeignSession
	}
	return s.querier()
}

func (d *DB) stmtCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, d.StatementTimeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
