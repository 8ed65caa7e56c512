package pg

import (
	"context"
	"fmt"

	"userprofile-service/internal/application"
	"userprofile-service/internal/domain"
	"userprofile-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ application.ProfileRepo = (*ProfileRepo)(nil)

type ProfileRepo struct{ db *DB }

func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Create(ctx context.Context, p domain.NewProfile, sess application.Session) (domain.Profile, error) {
	const ins = `
        INSERT INTO profiles(user_id, bio)
        VALUES ($1, $2)
        RETURNING id, created_at`
	log := logx.FromContext(ctx).With(
		zap.String("repo", "profile"),
		zap.String("operation", "Create"),
		zap.String("sql", ins),
		zap.Int64("user_id", p.UserID),
		zap.Bool("in_session", sess != nil),
	)
	q, err := r.db.querier(sess)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.Profile{}, err
	}
	ctx, cancel := r.db.stmtCtx(ctx)
	defer cancel()

	log.Info("sql.exec_start")
	out := domain.Profile{UserID: p.UserID, Bio: p.Bio}
	if err := q.QueryRow(ctx, ins, p.UserID, p.Bio).Scan(&out.ID, &out.CreatedAt); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return domain.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	log.Info("sql.exec_success", zap.Int64("id", out.ID))
	return out, nil
}

func (r *ProfileRepo) ListByUserID(ctx context.Context, userID int64) ([]domain.Profile, error) {
	const q = `SELECT id, user_id, bio, created_at FROM profiles WHERE user_id=$1 ORDER BY id`
	ctx, cancel := r.db.stmtCtx(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		logx.FromContext(ctx).Error("sql.query_failed",
			zap.String("repo", "profile"),
			zap.String("operation", "ListByUserID"),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Profile, error) {
		var p domain.Profile
		err := row.Scan(&p.ID, &p.UserID, &p.Bio, &p.CreatedAt)
		return p, err
	})
}
