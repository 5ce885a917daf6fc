package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store/memstore"
)

func newTestScheduler(t *testing.T, st store.Store, e *Engine, now time.Time) *Scheduler {
	t.Helper()
	s := NewScheduler(st, e, time.Minute, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func seedDueUser(t *testing.T, st store.Store, userID string, due time.Time, freq string) {
	t.Helper()
	_, err := st.Users().Create(context.Background(), &model.User{
		UserID:            userID,
		Email:             userID + "@example.com",
		DisplayName:       &userID,
		TimeZone:          "UTC",
		ReportFrequency:   freq,
		NextReportDueDate: due,
	})
	require.NoError(t, err)
}

func TestRunOnceGeneratesAndAdvances(t *testing.T) {
	st := memstore.New()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	seedDueUser(t, st, "user-1", due, model.FrequencyWeekly)
	seedJournals(t, st, "user-1", due.AddDate(0, 0, -3))

	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)
	s := newTestScheduler(t, st, e, now)

	require.NoError(t, s.RunOnce(context.Background()))

	r, err := st.Reports().GetByPeriod(context.Background(), "user-1", due.AddDate(0, 0, -7), due)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ReportID)

	u, err := st.Users().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), u.NextReportDueDate)
}

func TestRunOnceNoJournalsAdvancesWithoutReport(t *testing.T) {
	st := memstore.New()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	seedDueUser(t, st, "user-1", due, model.FrequencyWeekly)

	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)
	s := newTestScheduler(t, st, e, now)

	require.NoError(t, s.RunOnce(context.Background()))

	_, err := st.Reports().Latest(context.Background(), "user-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	u, err := st.Users().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, u.NextReportDueDate.After(now), "empty period still advances the schedule")
}

func TestRunOnceUpstreamFailureLeavesDueDate(t *testing.T) {
	st := memstore.New()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	due := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	seedDueUser(t, st, "user-1", due, model.FrequencyWeekly)
	seedJournals(t, st, "user-1", due.AddDate(0, 0, -3))

	transient := fmt.Errorf("genai status 503: %w", model.ErrUpstreamTransient)
	gen := &scriptedGenerator{results: []result{{err: transient}}}
	e := newTestEngine(t, st, gen, 1)
	s := newTestScheduler(t, st, e, now)

	require.NoError(t, s.RunOnce(context.Background()))

	u, err := st.Users().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, due, u.NextReportDueDate, "failed generation must be retried on the next scan")
}

func TestRunOnceCatchesUpOverdueUser(t *testing.T) {
	st := memstore.New()
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	// Three weeks overdue.
	due := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	seedDueUser(t, st, "user-1", due, model.FrequencyWeekly)
	seedJournals(t, st, "user-1", due.AddDate(0, 0, -2))

	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)
	s := newTestScheduler(t, st, e, now)

	require.NoError(t, s.RunOnce(context.Background()))

	u, err := st.Users().Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, u.NextReportDueDate.After(now), "overdue user must not be rescanned for a past period")
}
