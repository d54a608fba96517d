package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/pricer/internal/config"
	"github.com/Simplici0/pricer/internal/db"
	"github.com/Simplici0/pricer/internal/logging"
	"github.com/Simplici0/pricer/internal/migrations"
	"github.com/Simplici0/pricer/internal/pricing"
	"github.com/Simplici0/pricer/internal/seed"
	"github.com/Simplici0/pricer/internal/store"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNew(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		applied, err := migrations.Up(ctx, database)
		if err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
		stats, err := seed.Run(ctx, database)
		if err != nil {
			logger.Fatal("failed to seed database", zap.Error(err))
		}
		logger.Info("development database ready",
			zap.Int("migrations_applied", applied),
			zap.Int("seed_inserts", stats.Inserts),
		)
	}

	srv := newServer(
		store.New(database, cfg.FormulaCacheTTL),
		pricing.NewEngine(
			pricing.WithLogger(logger.Named("pricing")),
			pricing.WithDefaultCurrency(cfg.Currency),
		),
		logger,
		cfg,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
