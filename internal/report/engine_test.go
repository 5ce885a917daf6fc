package report

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/genai"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store/memstore"
)

const validDoc = `{
  "moodSummary": "A reflective week with steady recovery.",
  "keyEmotions": {"calm": 0.6, "anxiety": 0.3},
  "insights": ["Sleep improved mid-week"],
  "recommendations": ["Keep the evening walks"],
  "quote": "The only way out is through."
}`

// scriptedGenerator returns queued results in order; the last result repeats.
type scriptedGenerator struct {
	mu      sync.Mutex
	calls   atomic.Int64
	results []result
	delay   time.Duration
}

type result struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(ctx context.Context, messages []genai.Message) (string, error) {
	n := g.calls.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := int(n) - 1
	if idx >= len(g.results) {
		idx = len(g.results) - 1
	}
	r := g.results[idx]
	return r.text, r.err
}

func (g *scriptedGenerator) GenerateStream(ctx context.Context, messages []genai.Message, onDelta func(string)) (string, error) {
	return g.Generate(ctx, messages)
}

func newTestEngine(t *testing.T, st store.Store, gen genai.Generator, retryLimit int) *Engine {
	t.Helper()
	e := NewEngine(st, gen, retryLimit, zerolog.Nop())
	e.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return e
}

func seedJournals(t *testing.T, st store.Store, userID string, times ...time.Time) {
	t.Helper()
	for i, ts := range times {
		_, err := st.Journals().Create(context.Background(), &model.Journal{
			UserID:       userID,
			Title:        fmt.Sprintf("entry %d", i),
			Content:      "wrote some thoughts",
			CreationTime: ts,
		})
		require.NoError(t, err)
	}
}

func period() (time.Time, time.Time) {
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -7), end
}

func TestGeneratePersistsReport(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(24*time.Hour), start.Add(72*time.Hour))
	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)

	r, err := e.Generate(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ReportID)
	assert.Equal(t, "A reflective week with steady recovery.", r.MoodSummary)
	assert.InDelta(t, 0.6, r.KeyEmotions["calm"], 1e-9)
	assert.Equal(t, []string{"Sleep improved mid-week"}, r.Insights)
	assert.Equal(t, "The only way out is through.", r.Quote)

	stored, err := st.Reports().GetByPeriod(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, r.ReportID, stored.ReportID)
}

func TestGenerateNoJournals(t *testing.T) {
	st := memstore.New()
	start, end := period()
	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)

	_, err := e.Generate(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrNoJournals)
	assert.Zero(t, gen.calls.Load(), "no upstream call when the period is empty")

	_, err = st.Reports().GetByPeriod(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGenerateValidatesPeriod(t *testing.T) {
	st := memstore.New()
	e := newTestEngine(t, st, &scriptedGenerator{results: []result{{text: validDoc}}}, 3)
	start, end := period()

	_, err := e.Generate(context.Background(), "", start, end)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = e.Generate(context.Background(), "user-1", end, start)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestGenerateIsIdempotent(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	gen := &scriptedGenerator{results: []result{{text: validDoc}}}
	e := newTestEngine(t, st, gen, 3)

	first, err := e.Generate(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	second, err := e.Generate(context.Background(), "user-1", start, end)
	require.NoError(t, err)

	assert.Equal(t, first.ReportID, second.ReportID)
	assert.Equal(t, int64(1), gen.calls.Load(), "second trigger must reuse the stored report")
}

func TestConcurrentGenerateProducesOneReport(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	gen := &scriptedGenerator{results: []result{{text: validDoc}}, delay: 20 * time.Millisecond}
	e := newTestEngine(t, st, gen, 3)

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := e.Generate(context.Background(), "user-1", start, end)
			if assert.NoError(t, err) {
				ids[i] = r.ReportID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), gen.calls.Load(), "concurrent triggers must share one generation")
	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i], "every caller must observe the same report")
	}
	reports, err := st.Reports().List(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	transient := fmt.Errorf("genai status 503: %w", model.ErrUpstreamTransient)
	gen := &scriptedGenerator{results: []result{
		{err: transient},
		{err: transient},
		{text: validDoc},
	}}
	e := newTestEngine(t, st, gen, 3)

	r, err := e.Generate(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ReportID)
	assert.Equal(t, int64(3), gen.calls.Load())
}

func TestTransientFailureExhaustsRetryLimit(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	transient := fmt.Errorf("genai status 429: %w", model.ErrUpstreamTransient)
	gen := &scriptedGenerator{results: []result{{err: transient}}}
	e := newTestEngine(t, st, gen, 3)

	_, err := e.Generate(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrUpstreamTransient)
	assert.Equal(t, int64(3), gen.calls.Load(), "attempts bounded by the retry limit")
	_, err = st.Reports().GetByPeriod(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPermanentFailureDoesNotRetry(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	permanent := fmt.Errorf("genai status 400: %w", model.ErrUpstream)
	gen := &scriptedGenerator{results: []result{{err: permanent}}}
	e := newTestEngine(t, st, gen, 3)

	_, err := e.Generate(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, int64(1), gen.calls.Load())
}

func TestMalformedDocumentIsPermanent(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	gen := &scriptedGenerator{results: []result{{text: "I cannot produce JSON today."}}}
	e := newTestEngine(t, st, gen, 3)

	_, err := e.Generate(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, int64(1), gen.calls.Load(), "schema violations must not retry")
}

func TestFencedDocumentIsAccepted(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	gen := &scriptedGenerator{results: []result{{text: "```json\n" + validDoc + "\n```"}}}
	e := newTestEngine(t, st, gen, 3)

	r, err := e.Generate(context.Background(), "user-1", start, end)
	require.NoError(t, err)
	assert.Equal(t, "A reflective week with steady recovery.", r.MoodSummary)
}

func TestOutOfRangeEmotionIntensityRejected(t *testing.T) {
	st := memstore.New()
	start, end := period()
	seedJournals(t, st, "user-1", start.Add(time.Hour))
	doc := `{"moodSummary": "x", "keyEmotions": {"rage": 1.7}}`
	gen := &scriptedGenerator{results: []result{{text: doc}}}
	e := newTestEngine(t, st, gen, 3)

	_, err := e.Generate(context.Background(), "user-1", start, end)
	assert.ErrorIs(t, err, model.ErrUpstream)
}

func TestComputeNextDue(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		freq string
		want time.Time
	}{
		{
			name: "weekly normalizes to midnight",
			from: time.Date(2026, 3, 10, 15, 42, 7, 0, time.UTC),
			freq: model.FrequencyWeekly,
			want: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "biweekly",
			from: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			freq: model.FrequencyBiweekly,
			want: time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly",
			from: time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC),
			freq: model.FrequencyMonthly,
			want: time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly end of month rolls forward",
			from: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			freq: model.FrequencyMonthly,
			want: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input normalized",
			from: time.Date(2026, 3, 10, 23, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)),
			freq: model.FrequencyWeekly,
			want: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeNextDue(tc.from, tc.freq))
		})
	}
}
