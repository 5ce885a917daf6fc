// Package outboxworker composes the standalone outbox worker process that
// drains journal index operations from Postgres into Weaviate.
package outboxworker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/config"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/factory"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/logger"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/outbox"
	storepg "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store/postgres"
)

// Run starts the outbox worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("outbox-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	// Leasing relies on FOR UPDATE SKIP LOCKED, so the worker is Postgres-only.
	if cfg.DBDriver != "postgres" {
		return fmt.Errorf("outbox worker requires DB_DRIVER=postgres, got %s", cfg.DBDriver)
	}
	if !cfg.SearchEnabled {
		return fmt.Errorf("outbox worker requires JOURNAL_BACKEND_SEARCH_ENABLED=true")
	}
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("JOURNAL_BACKEND_POSTGRES_DSN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storepg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Postgres unavailable")
		return err
	}
	defer db.Close()

	searcher, err := factory.NewSearcher(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Search adapter unavailable")
		return err
	}
	embedder := factory.NewEmbeddingProvider(ctx, cfg, log)
	if embedder == nil {
		return fmt.Errorf("embedding provider not configured")
	}

	worker := outbox.NewWorker(db, embedder, searcher, outbox.Config{}, log)
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("Worker exited")
	return nil
}
