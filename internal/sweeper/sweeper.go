// Package sweeper removes expired chat sessions in the background. Retention
// is enforced at read time as well, so the sweep is garbage collection, not
// the source of truth.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Evictor is satisfied by chat.Manager.
type Evictor interface {
	EvictExpired(ctx context.Context) (int, error)
}

// Sweeper runs periodic eviction passes.
type Sweeper struct {
	evictor  Evictor
	log      zerolog.Logger
	interval time.Duration
}

// New constructs a Sweeper.
func New(evictor Evictor, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{evictor: evictor, log: log, interval: interval}
}

// Run starts the sweep loop until ctx is canceled. A failed pass is logged
// and retried on the next tick; it never takes the service down.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("eviction sweeper starting")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("eviction sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.evictor.EvictExpired(ctx); err != nil {
				s.log.Error().Err(err).Msg("eviction sweep failed")
			}
		}
	}
}
