package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/app"
	"github.com/noah-isme/sma-merit-api/pkg/config"
	"github.com/noah-isme/sma-merit-api/pkg/logger"
)

// @title SMA Merit Ledger API
// @version 1.0.0
// @description Conduct points, lesson plan submissions and daily meal counts
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := app.Build(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to wire application", zap.Error(err))
	}
	defer cleanup()

	if cfg.Seed.ProvisionOnBoot {
		written, err := container.Provision(ctx, cfg.Seed.File)
		if err != nil {
			logr.Fatal("failed to provision catalog", zap.String("seed_file", cfg.Seed.File), zap.Error(err))
		}
		logr.Info("catalog ready", zap.Int("rows_written", written))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		logr.Error("server failed", zap.Error(err))
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("could not stop server gracefully", zap.Error(err))
		_ = server.Close()
	}
}
