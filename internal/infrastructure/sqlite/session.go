package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"userprofile-service/internal/application"
)

var _ application.Session = (*Session)(nil)

// Session pins one *sql.Conn from the pool until Release.
type Session struct {
	conn  *sql.Conn
	tx    *sql.Tx
	state application.SessionState
}

func (d *DB) NewSession(ctx context.Context) (application.Session, error) {
	conn, err := d.SQL.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite acquire: %w", err)
	}
	return &Session{conn: conn, state: application.SessionIdle}, nil
}

func (s *Session) State() application.SessionState { return s.state }

// Begin starts a transaction. SQLite transactions are always serializable,
// so every supported level maps to the driver default.
//
// database/sql keeps the BeginTx context for the life of the transaction, so
// the transaction is begun detached from ctx and ends only through Commit or
// Rollback. The wait for the write lock is bounded by the connection's
// busy_timeout, which follows the statement timeout.
func (s *Session) Begin(ctx context.Context, level application.IsolationLevel) error {
	if !s.state.CanBegin() {
		return fmt.Errorf("%w: begin while %s", application.ErrSessionState, s.state)
	}
	if _, err := application.ParseIsolationLevel(string(level)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return err
	}
	s.tx = tx
	s.state = application.SessionActive
	return nil
}

func (s *Session) Commit(context.Context) error {
	if s.state != application.SessionActive {
		return fmt.Errorf("%w: commit while %s", application.ErrSessionState, s.state)
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		s.state = application.SessionRolledBack
		return err
	}
	s.state = application.SessionCommitted
	return nil
}

func (s *Session) Rollback(context.Context) error {
	if s.state != application.SessionActive {
		return fmt.Errorf("%w: rollback while %s", application.ErrSessionState, s.state)
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.state = application.SessionRolledBack
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (s *Session) Release(ctx context.Context) error {
	if s.state == application.SessionReleased {
		return fmt.Errorf("%w: already released", application.ErrSessionState)
	}
	var rbErr error
	if s.state == application.SessionActive {
		rbErr = s.Rollback(ctx)
	}
	err := s.conn.Close()
	s.state = application.SessionReleased
	if err != nil {
		return err
	}
	return rbErr
}

func (s *Session) execer() (execer, error) {
	switch {
	case s.state == application.SessionReleased:
		return nil, fmt.Errorf("%w: session released", application.ErrSessionState)
	case s.tx != nil:
		return s.tx, nil
	default:
		return s.conn, nil
	}
}
