package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"userprofile-service/internal/bootstrap"
	"userprofile-service/internal/config"
	infraconfig "userprofile-service/internal/infrastructure/config"
	httpserver "userprofile-service/internal/infrastructure/http"
	"userprofile-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	port := cfg.Port
	if port == "" {
		port = infraconfig.DefaultHTTPPort
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("init api", zap.Error(err))
	}
	defer cleanup()

	server := &http.Server{
		Addr:    addr,
		Handler: httpserver.NewRouter(srv),
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr), zap.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
