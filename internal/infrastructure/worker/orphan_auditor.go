package worker

import (
	"context"
	"time"

	"userprofile-service/internal/application"
	infraconfig "userprofile-service/internal/infrastructure/config"

	"go.uber.org/zap"
)

var _ application.Worker = (*OrphanAuditor)(nil)

// OrphanAuditor periodically reports users that have no profile, the state a
// failed non-transactional create leaves behind. It only reads.
type OrphanAuditor struct {
	Users application.UserRepo

	PollEvery  time.Duration
	BatchLimit int
	Log        *zap.Logger
}

func (w *OrphanAuditor) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = infraconfig.DefaultAuditPoll
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = infraconfig.DefaultAuditBatch
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("orphan_auditor_started", zap.Duration("poll_every", w.PollEvery))
	for {
		select {
		case <-ctx.Done():
			log.Info("orphan_auditor_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

// tick returns the number of orphans seen.
func (w *OrphanAuditor) tick(ctx context.Context, log *zap.Logger) int {
	users, err := w.Users.ListWithoutProfile(ctx, w.BatchLimit)
	if err != nil {
		log.Warn("orphan_scan_failed", zap.Error(err))
		return 0
	}
	for _, u := range users {
		log.Warn("orphan_user",
			zap.Int64("user_id", u.ID),
			zap.String("email", u.Email),
			zap.Time("created_at", u.CreatedAt),
		)
	}
	log.Info("orphan_scan_done", zap.Int("orphans", len(users)), zap.Bool("truncated", len(users) == w.BatchLimit))
	return len(users)
}
