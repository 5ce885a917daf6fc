package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/config"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/search"
)

// NewSearcher constructs the Weaviate-backed searcher and launches an async
// schema bootstrap. Returns nil when search is disabled.
func NewSearcher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (search.Searcher, error) {
	if !cfg.SearchEnabled {
		return nil, nil
	}
	s, err := search.NewWeaviateSearcher(cfg.WeaviateURL)
	if err != nil {
		return nil, err
	}

	go func() {
		bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
		bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()

		if err := search.BootstrapWeaviate(bootstrapCtx, cfg.WeaviateURL); err != nil {
			log.Warn().Err(err).Str("weaviate_url", cfg.WeaviateURL).Msg("weaviate schema bootstrap failed")
		} else {
			log.Debug().Str("weaviate_url", cfg.WeaviateURL).Msg("weaviate schema bootstrap completed")
		}
	}()

	return s, nil
}
