package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/config"
	storepkg "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
	storepg "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store/postgres"
	storelite "github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store/sqlite"
)

// NewStore returns a store.Store for the configured driver. Postgres launches
// an async bootstrap check and returns immediately for fast startup; SQLite
// applies its schema synchronously.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := cfg.PostgresDSN
		if dsn == "" {
			return nil, fmt.Errorf("JOURNAL_BACKEND_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}

		// Open connection synchronously since health checks need it immediately
		db, err := storepg.Open(dsn)
		if err != nil {
			return nil, err
		}

		// Async bootstrap check with configurable timeout; don't block startup
		go func() {
			bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
			bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
			defer cancel()

			if err := storepg.Bootstrap(bootstrapCtx, dsn); err != nil {
				log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap check failed")
			} else {
				log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap check completed")
			}
		}()

		return storepg.NewWithDB(db), nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "./data/journal.db"
		}
		return storelite.New(path)

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
