package pg

import (
	"context"
	"fmt"
	"time"

	"userprofile-service/internal/application"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ application.Session = (*Session)(nil)

// Session owns one connection acquired from the pool until Release.
type Session struct {
	conn        *pgxpool.Conn
	tx          pgx.Tx
	state       application.SessionState
	stmtTimeout time.Duration
}

func (d *DB) NewSession(ctx context.Context) (application.Session, error) {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg acquire: %w", err)
	}
	return &Session{conn: conn, state: application.SessionIdle, stmtTimeout: d.StatementTimeout}, nil
}

func (s *Session) State() application.SessionState { return s.state }

func (s *Session) Begin(ctx context.Context, level application.IsolationLevel) error {
	if !s.state.CanBegin() {
		return fmt.Errorf("%w: begin while %s", application.ErrSessionState, s.state)
	}
	iso, err := txIsoLevel(level)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.stmtTimeout)
	defer cancel()
	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return err
	}
	s.tx = tx
	s.state = application.SessionActive
	return nil
}

// Commit ends the transaction. When COMMIT fails Postgres has already
// discarded the transaction, so the session is marked rolled back.
func (s *Session) Commit(ctx context.Context) error {
	if s.state != application.SessionActive {
		return fmt.Errorf("%w: commit while %s", application.ErrSessionState, s.state)
	}
	ctx, cancel := withTimeout(ctx, s.stmtTimeout)
	defer cancel()
	err := s.tx.Commit(ctx)
	s.tx = nil
	if err != nil {
		s.state = application.SessionRolledBack
		return err
	}
	s.state = application.SessionCommitted
	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.state != application.SessionActive {
		return fmt.Errorf("%w: rollback while %s", application.ErrSessionState, s.state)
	}
	ctx, cancel := withTimeout(ctx, s.stmtTimeout)
	defer cancel()
	err := s.tx.Rollback(ctx)
	s.tx = nil
	s.state = application.SessionRolledBack
	return err
}

// Release hands the connection back to the pool. A transaction still open at
// this point is rolled back first.
func (s *Session) Release(ctx context.Context) error {
	if s.state == application.SessionReleased {
		return fmt.Errorf("%w: already released", application.ErrSessionState)
	}
	var err error
	if s.state == application.SessionActive {
		err = s.Rollback(ctx)
	}
	s.conn.Release()
	s.conn = nil
	s.state = application.SessionReleased
	return err
}

func (s *Session) querier() (querier, error) {
	switch {
	case s.state == application.SessionReleased:
		return nil, fmt.Errorf("%w: session released", application.ErrSessionState)
	case s.tx != nil:
		return s.tx, nil
	default:
		return s.conn, nil
	}
}

func txIsoLevel(l application.IsolationLevel) (pgx.TxIsoLevel, error) {
	switch l {
	case application.ReadUncommitted:
		return pgx.ReadUncommitted, nil
	case "", application.ReadCommitted:
		return pgx.ReadCommitted, nil
	case application.RepeatableRead:
		return pgx.RepeatableRead, nil
	case application.Serializable:
		return pgx.Serializable, nil
	}
	return "", fmt.Errorf("%w: unsupported isolation level %q", application.ErrBadRequest, l)
}
