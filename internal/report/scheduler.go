package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// Scheduler periodically scans for users whose next report is due and
// triggers generation for the elapsed period.
type Scheduler struct {
	store    store.Store
	engine   *Engine
	log      zerolog.Logger
	interval time.Duration
	batch    int

	now func() time.Time
}

// NewScheduler constructs a Scheduler.
func NewScheduler(st store.Store, engine *Engine, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		store:    st,
		engine:   engine,
		log:      log,
		interval: interval,
		batch:    100,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run starts the scan loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("report scheduler starting")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("report scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error().Err(err).Msg("report scheduler scan")
			}
		}
	}
}

// RunOnce performs a single scan. Per-user failures are logged and do not
// stop the scan; a user's due date only advances on success or when the
// period had no journals.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.now()
	due, err := s.store.Users().ListDue(ctx, now, s.batch)
	if err != nil {
		return err
	}
	for _, u := range due {
		s.processUser(ctx, u, now)
	}
	return nil
}

func (s *Scheduler) processUser(ctx context.Context, u *model.User, now time.Time) {
	periodEnd := u.NextReportDueDate.UTC()
	periodStart := periodStartFor(periodEnd, u.ReportFrequency)

	_, err := s.engine.Generate(ctx, u.UserID, periodStart, periodEnd)
	switch {
	case err == nil:
		// fallthrough to advance
	case errors.Is(err, model.ErrNoJournals):
		s.log.Debug().Str("user_id", u.UserID).Msg("no journals in period; skipping report")
	default:
		// Transient or permanent upstream failure: leave the due date so the
		// next scan retries the same period.
		s.log.Warn().Err(err).Str("user_id", u.UserID).Msg("scheduled report generation failed")
		return
	}

	next := ComputeNextDue(periodEnd, u.ReportFrequency)
	if !next.After(now) {
		// The user was overdue by more than one period; catch up without
		// looping the scan forever on one user.
		next = ComputeNextDue(now, u.ReportFrequency)
	}
	if err := s.store.Users().AdvanceDueDate(ctx, u.UserID, next); err != nil {
		s.log.Error().Err(err).Str("user_id", u.UserID).Msg("advance due date")
	}
}

func periodStartFor(periodEnd time.Time, frequency string) time.Time {
	switch frequency {
	case model.FrequencyBiweekly:
		return periodEnd.AddDate(0, 0, -14)
	case model.FrequencyMonthly:
		return periodEnd.AddDate(0, -1, 0)
	default:
		return periodEnd.AddDate(0, 0, -7)
	}
}
