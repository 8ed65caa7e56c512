package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"userprofile-service/internal/application"
	"userprofile-service/internal/config"
	httpserver "userprofile-service/internal/infrastructure/http"
	"userprofile-service/internal/infrastructure/logx"
	"userprofile-service/internal/infrastructure/pg"
	redisstore "userprofile-service/internal/infrastructure/redis"
	"userprofile-service/internal/infrastructure/sqlite"
	"userprofile-service/internal/infrastructure/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// Store is the storage backend selected by STORAGE.
type Store struct {
	Sessions application.SessionFactory
	Users    application.UserRepo
	Profiles application.ProfileRepo
	Ping     func(ctx context.Context) error
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideStore(ctx context.Context, log *zap.Logger, cfg config.Config) (Store, func(), error) {
	switch cfg.Storage {
	case "pg":
		if cfg.DatabaseURL == "" {
			return Store{}, func() {}, ErrMissingDBURL
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Store{}, func() {}, fmt.Errorf("connect pg: %w", err)
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Store{}, func() {}, err
		}
		if cfg.StatementTimeout > 0 {
			db.StatementTimeout = cfg.StatementTimeout
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Store{
			Sessions: db,
			Users:    pg.NewUserRepo(db),
			Profiles: pg.NewProfileRepo(db),
			Ping:     db.Ping,
		}, cleanup, nil
	case "sqlite":
		var opts []sqlite.Option
		if cfg.StatementTimeout > 0 {
			opts = append(opts, sqlite.WithStatementTimeout(cfg.StatementTimeout))
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return Store{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing sqlite")
			_ = db.Close()
		}
		return Store{
			Sessions: db,
			Users:    sqlite.NewUserRepo(db),
			Profiles: sqlite.NewProfileRepo(db),
			Ping:     db.Ping,
		}, cleanup, nil
	default:
		return Store{}, func() {}, fmt.Errorf("unsupported STORAGE=%q", cfg.Storage)
	}
}

// ProvideIdempotency returns the redis-backed store, or a no-op one when
// IDEMPOTENCY_BACKEND is not "redis".
func ProvideIdempotency(cfg config.Config) (application.IdempotencyStore, func(), error) {
	if cfg.IdempotencyBackend != "redis" {
		return application.NoopIdempotency{}, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.RedisTTL), func() { _ = client.Close() }, nil
}

func ProvideUnitOfWork(s Store, log *zap.Logger, cfg config.Config) *application.UnitOfWork {
	return application.NewUnitOfWork(s.Sessions,
		application.WithAcquireTimeout(cfg.AcquireTimeout),
		application.WithUoWLogger(log),
	)
}

func ProvideUserService(s Store, uow *application.UnitOfWork, idem application.IdempotencyStore, log *zap.Logger, cfg config.Config) (*application.UserService, error) {
	level, err := application.ParseIsolationLevel(cfg.TxIsolation)
	if err != nil {
		return nil, fmt.Errorf("TX_ISOLATION: %w", err)
	}
	opts := []application.Option{
		application.WithIsolation(level),
		application.WithIdempotency(idem),
		application.WithLogger(log),
	}
	if cfg.FaultInject != "" {
		step, err := application.ParseStep(cfg.FaultInject)
		if err != nil {
			return nil, fmt.Errorf("FAULT_INJECT: %w", err)
		}
		log.Warn("fault injection enabled", zap.String("step", string(step)))
		opts = append(opts, application.WithFaultInjector(application.FailAt(step)))
	}
	return application.NewUserService(s.Users, s.Profiles, uow, opts...), nil
}

func ProvideHTTPServer(svc *application.UserService, s Store) *httpserver.Server {
	srv := httpserver.NewServer(svc)
	srv.SetReadyCheck(s.Ping)
	return srv
}

func ProvideOrphanAuditor(s Store, log *zap.Logger, cfg config.Config) application.Worker {
	return &worker.OrphanAuditor{
		Users:      s.Users,
		PollEvery:  cfg.AuditPoll,
		BatchLimit: cfg.AuditBatchLimit,
		Log:        log,
	}
}
