package application

import (
	"context"

	"userprofile-service/internal/domain"
)

// SessionFactory hands out transactional sessions, each bound to one pooled
// connection.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session is a connection-scoped handle that can run one transaction at a
// time. Release returns the connection to the pool; the session is unusable
// afterwards.
type Session interface {
	Begin(ctx context.Context, level IsolationLevel) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Release(ctx context.Context) error
	State() SessionState
}

// UserRepo writes and reads users. A nil Session means the write commits on
// its own through the default pool.
type UserRepo interface {
	Create(ctx context.Context, u domain.NewUser, sess Session) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	ListWithoutProfile(ctx context.Context, limit int) ([]domain.User, error)
}

type ProfileRepo interface {
	Create(ctx context.Context, p domain.NewProfile, sess Session) (domain.Profile, error)
	ListByUserID(ctx context.Context, userID int64) ([]domain.Profile, error)
}
