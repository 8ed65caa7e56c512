package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"userprofile-service/internal/application"
	"userprofile-service/internal/domain"
	"userprofile-service/internal/infrastructure/logx"

	"go.uber.org/zap"
)

var _ application.UserRepo = (*UserRepo)(nil)

type UserRepo struct{ db *DB }

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u domain.NewUser, sess application.Session) (domain.User, error) {
	const ins = `INSERT INTO users(name, email, created_at) VALUES (?, ?, ?)`
	log := logx.FromContext(ctx).With(
		zap.String("repo", "user"),
		zap.String("operation", "Create"),
		zap.String("sql", ins),
		zap.Bool("in_session", sess != nil),
	)
	ex, err := r.db.execer(sess)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.User{}, err
	}
	ctx, cancel := r.db.stmtCtx(ctx)
	defer cancel()

	log.Info("sql.exec_start")
	out := domain.User{Name: u.Name, Email: u.Email, CreatedAt: time.Now().UTC()}
	res, err := ex.ExecContext(ctx, ins, u.Name, u.Email, out.CreatedAt.Format(timeLayout))
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if out.ID, err = res.LastInsertId(); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	log.Info("sql.exec_success", zap.Int64("id", out.ID))
	return out, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const q = `SELECT id, name, email, created_at FROM users WHERE id = ?`
	log := logx.FromContext(ctx).With(
		zap.String("repo", "user"),
		zap.String("operation", "GetByID"),
		zap.Int64("id", id),
	)
	ctx, cancel := r.db.stmtCtx(ctx)
	defer cancel()

	var out domain.User
	err := r.db.SQL.QueryRowContext(ctx, q, id).Scan(&out.ID, &out.Name, &out.Email, sqlTime{&out.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		log.Info("sql.query_no_rows")
		return domain.User{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.User{}, err
	}
	return out, nil
}

func (r *UserRepo) ListWithoutProfile(ctx context.Context, limit int) ([]domain.User, error) {
	const q = `
      SELECT u.id, u.name, u.email, u.created_at
      FROM users u
      WHERE NOT EXISTS (SELECT 1 FROM profiles p WHERE p.user_id = u.id)
      ORDER BY u.id
      LIMIT ?`
	ctx, cancel := r.db.stmtCtx(ctx)
	defer cancel()

	rows, err := r.db.SQL.QueryContext(ctx, q, limit)
	if err != nil {
		logx.FromContext(ctx).Error("sql.query_failed",
			zap.String("repo", "user"),
			zap.String("operation", "ListWithoutProfile"),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()
	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, sqlTime{&u.CreatedAt}); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
