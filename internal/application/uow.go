package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// UnitOfWork runs a function inside a single transaction on a freshly
// acquired session. The session is released exactly once per call, whatever
// the outcome.
type UnitOfWork struct {
	sessions       SessionFactory
	acquireTimeout time.Duration
	log            *zap.Logger
}

type UoWOption func(*UnitOfWork)

// WithAcquireTimeout bounds how long Do waits for a connection.
func WithAcquireTimeout(d time.Duration) UoWOption {
	return func(u *UnitOfWork) { u.acquireTimeout = d }
}

func WithUoWLogger(l *zap.Logger) UoWOption { return func(u *UnitOfWork) { u.log = l } }

func NewUnitOfWork(sessions SessionFactory, opts ...UoWOption) *UnitOfWork {
	u := &UnitOfWork{sessions: sessions}
	for _, opt := range opts {
		opt(u)
	}
	if u.log == nil {
		u.log = zap.NewNop()
	}
	return u
}

// Do acquires a session, begins a transaction at level (ReadCommitted when
// empty) and calls fn with it. A nil return commits; an error or a panic rolls
// back. Errors from fn are returned as is. Rollback and release failures are
// logged and never replace the error being returned.
func (u *UnitOfWork) Do(ctx context.Context, level IsolationLevel, fn func(ctx context.Context, s Session) error) error {
	if level == "" {
		level = DefaultIsolation
	}
	sess, err := u.acquire(ctx)
	if err != nil {
		return err
	}
	log := u.log.With(zap.String("isolation", string(level)))
	defer func() {
		if err := sess.Release(context.WithoutCancel(ctx)); err != nil {
			log.Error("tx.release_failed", zap.Error(err))
		}
	}()

	if err := sess.Begin(ctx, level); err != nil {
		log.Warn("tx.begin_failed", zap.Error(err))
		return fmt.Errorf("begin: %w", err)
	}
	if err := u.run(ctx, sess, fn, log); err != nil {
		return err
	}
	if err := sess.Commit(ctx); err != nil {
		log.Warn("tx.commit_failed", zap.Error(err))
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (u *UnitOfWork) acquire(ctx context.Context) (Session, error) {
	if u.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.acquireTimeout)
		defer cancel()
	}
	sess, err := u.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return sess, nil
}

func (u *UnitOfWork) run(ctx context.Context, sess Session, fn func(ctx context.Context, s Session) error, log *zap.Logger) error {
	defer func() {
		if rec := recover(); rec != nil {
			u.rollback(ctx, sess, log)
			panic(rec)
		}
	}()
	if err := fn(ctx, sess); err != nil {
		u.rollback(ctx, sess, log)
		return err
	}
	return nil
}

func (u *UnitOfWork) rollback(ctx context.Context, sess Session, log *zap.Logger) {
	if err := sess.Rollback(context.WithoutCancel(ctx)); err != nil {
		log.Error("tx.rollback_failed", zap.Error(err))
	}
}

// WithTransaction is Do for units of work that produce a value. The value is
// returned only when the transaction committed.
func WithTransaction[T any](ctx context.Context, u *UnitOfWork, level IsolationLevel, fn func(ctx context.Context, s Session) (T, error)) (T, error) {
	var out T
	err := u.Do(ctx, level, func(ctx context.Context, s Session) error {
		v, err := fn(ctx, s)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
