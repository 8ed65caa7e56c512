package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"userprofile-service/internal/application"
	"userprofile-service/internal/domain"
	"userprofile-service/internal/infrastructure/logx"
	"userprofile-service/internal/infrastructure/sqlite"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatementTimeout_BoundsLockWait(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "lock.db"), sqlite.WithStatementTimeout(200*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	users := sqlite.NewUserRepo(db)

	holder, err := db.NewSession(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = holder.Release(ctx) })
	require.NoError(t, holder.Begin(ctx, application.ReadCommitted))
	_, err = users.Create(ctx, domain.NewUser{Name: "Ann", Email: "ann@x.com"}, holder)
	require.NoError(t, err)

	start := time.Now()
	_, err = users.Create(ctx, domain.NewUser{Name: "Bo", Email: "bo@x.com"}, nil)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)

	waiter, err := db.NewSession(ctx)
	require.NoError(t, err)
	start = time.Now()
	require.Error(t, waiter.Begin(ctx, application.ReadCommitted))
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, application.SessionIdle, waiter.State())
	require.NoError(t, waiter.Release(ctx))
}

func TestUnitOfWork_CancelledContextRollsBackCleanly(t *testing.T) {
	db := openDB(t)
	users := sqlite.NewUserRepo(db)
	core, logs := observer.New(zap.InfoLevel)
	uow := application.NewUnitOfWork(db, application.WithUoWLogger(zap.New(core)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var id int64
	err := uow.Do(ctx, application.ReadCommitted, func(ctx context.Context, s application.Session) error {
		u, err := users.Create(ctx, domain.NewUser{Name: "Ann", Email: "ann@x.com"}, s)
		if err != nil {
			return err
		}
		id = u.ID
		cancel()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotZero(t, id)
	require.Zero(t, logs.FilterMessage("tx.rollback_failed").Len())
	require.Zero(t, logs.FilterMessage("tx.release_failed").Len())

	_, err = users.GetByID(context.Background(), id)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestRepos_LogStatementEvents(t *testing.T) {
	db := openDB(t)
	core, logs := observer.New(zap.InfoLevel)
	ctx := logx.Into(context.Background(), zap.New(core))

	u, err := sqlite.NewUserRepo(db).Create(ctx, domain.NewUser{Name: "Ann", Email: "ann@x.com"}, nil)
	require.NoError(t, err)
	_, err = sqlite.NewProfileRepo(db).Create(ctx, domain.NewProfile{UserID: u.ID, Bio: "hi"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, logs.FilterMessage("sql.exec_start").Len())
	success := logs.FilterMessage("sql.exec_success").All()
	require.Len(t, success, 2)
	require.Equal(t, "user", success[0].ContextMap()["repo"])
	require.Equal(t, "profile", success[1].ContextMap()["repo"])

	_, err = sqlite.NewUserRepo(db).GetByID(ctx, u.ID+100)
	require.ErrorIs(t, err, application.ErrNotFound)
	require.Equal(t, 1, logs.FilterMessage("sql.query_no_rows").Len())
}

func TestSchema_CreatedAtDefault(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	res, err := db.SQL.ExecContext(ctx, `INSERT INTO users(name, email) VALUES ('Bo', 'bo@x.com')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	u, err := sqlite.NewUserRepo(db).GetByID(ctx, id)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC(), u.CreatedAt, time.Minute)
}
