// Package report generates periodic mood reports from journal entries.
//
// Generation is idempotent per (user, period): the store's unique key on
// (user_id, period_start, period_end) is authoritative, and an in-process
// single-flight collapses concurrent triggers for the same key so at most
// one upstream call runs per process.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/genai"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// Engine drives the report pipeline: fetch journals, generate, parse, persist.
type Engine struct {
	store      store.Store
	generator  genai.Generator
	log        zerolog.Logger
	retryLimit int

	mu      sync.Mutex
	flights map[string]*flight

	// test seams
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

type flight struct {
	done   chan struct{}
	report *model.MoodReport
	err    error
}

// NewEngine constructs an Engine. retryLimit bounds upstream attempts for
// transient failures.
func NewEngine(st store.Store, gen genai.Generator, retryLimit int, log zerolog.Logger) *Engine {
	if retryLimit < 1 {
		retryLimit = 1
	}
	return &Engine{
		store:      st,
		generator:  gen,
		log:        log,
		retryLimit: retryLimit,
		flights:    make(map[string]*flight),
		now:        func() time.Time { return time.Now().UTC() },
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Minute
			return b
		},
	}
}

// Generate produces the report for the given user and period, or returns the
// already persisted one. Concurrent calls for the same key share a single
// generation; losers of a cross-process race adopt the stored winner row.
func (e *Engine) Generate(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	if !periodStart.Before(periodEnd) {
		return nil, fmt.Errorf("periodStart must precede periodEnd: %w", model.ErrValidation)
	}
	periodStart = periodStart.UTC()
	periodEnd = periodEnd.UTC()

	// Fast path: the report may already exist.
	if existing, err := e.store.Reports().GetByPeriod(ctx, userID, periodStart, periodEnd); err == nil {
		return existing, nil
	}

	key := dedupKey(userID, periodStart, periodEnd)

	e.mu.Lock()
	if f, ok := e.flights[key]; ok {
		e.mu.Unlock()
		select {
		case <-f.done:
			return f.report, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	e.flights[key] = f
	e.mu.Unlock()

	f.report, f.err = e.generate(ctx, userID, periodStart, periodEnd)
	close(f.done)

	e.mu.Lock()
	delete(e.flights, key)
	e.mu.Unlock()

	return f.report, f.err
}

func (e *Engine) generate(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error) {
	journals, err := e.store.Journals().ListRange(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, model.ErrNoJournals
	}

	payload, err := e.generateWithRetry(ctx, journals, periodStart, periodEnd)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).
			Time("period_start", periodStart).Time("period_end", periodEnd).
			Msg("report generation failed")
		return nil, err
	}

	report := &model.MoodReport{
		UserID:          userID,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		MoodSummary:     payload.MoodSummary,
		KeyEmotions:     payload.KeyEmotions,
		Insights:        payload.Insights,
		Recommendations: payload.Recommendations,
		Quote:           payload.Quote,
	}
	persisted, created, err := e.store.Reports().CreateIfAbsent(ctx, report)
	if err != nil {
		return nil, err
	}
	if !created {
		e.log.Debug().Str("user_id", userID).Str("report_id", persisted.ReportID).
			Msg("lost report insert race; returning existing row")
	}
	return persisted, nil
}

// reportPayload is the JSON shape requested from the generator.
type reportPayload struct {
	MoodSummary     string             `json:"moodSummary"`
	KeyEmotions     map[string]float64 `json:"keyEmotions"`
	Insights        []string           `json:"insights"`
	Recommendations []string           `json:"recommendations"`
	Quote           string             `json:"quote"`
}

func (e *Engine) generateWithRetry(ctx context.Context, journals []*model.Journal, periodStart, periodEnd time.Time) (*reportPayload, error) {
	messages := buildPrompt(journals, periodStart, periodEnd)

	var out *reportPayload
	operation := func() error {
		raw, err := e.generator.Generate(ctx, messages)
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		payload, err := parsePayload(raw)
		if err != nil {
			// A malformed document will not improve on retry with the same
			// prompt; fail permanently.
			return backoff.Permanent(fmt.Errorf("%v: %w", err, model.ErrUpstream))
		}
		out = payload
		return nil
	}

	b := backoff.WithMaxRetries(e.newBackOff(), uint64(e.retryLimit-1))
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func isTransient(err error) bool {
	return errors.Is(err, model.ErrUpstreamTransient)
}

func buildPrompt(journals []*model.Journal, periodStart, periodEnd time.Time) []genai.Message {
	var sb strings.Builder
	for _, j := range journals {
		fmt.Fprintf(&sb, "[%s] %s\n%s\n\n", j.CreationTime.Format("2006-01-02"), j.Title, j.Content)
	}
	system := "You are an emotional wellness analyst. Given a user's journal entries, " +
		"respond with ONLY a JSON object of the form " +
		`{"moodSummary": string, "keyEmotions": {emotion: intensity 0..1}, ` +
		`"insights": [string], "recommendations": [string], "quote": string}. ` +
		"No prose outside the JSON."
	user := fmt.Sprintf("Journal entries from %s to %s:\n\n%s",
		periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), sb.String())
	return []genai.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// parsePayload decodes and validates the generator's JSON document.
func parsePayload(raw string) (*reportPayload, error) {
	raw = stripFences(raw)
	var p reportPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("malformed report document: %v", err)
	}
	if p.MoodSummary == "" {
		return nil, fmt.Errorf("report document missing moodSummary")
	}
	for emotion, intensity := range p.KeyEmotions {
		if intensity < 0 || intensity > 1 {
			return nil, fmt.Errorf("emotion %q intensity %v out of range", emotion, intensity)
		}
	}
	return &p, nil
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func dedupKey(userID string, start, end time.Time) string {
	return userID + "|" + start.Format(time.RFC3339) + "|" + end.Format(time.RFC3339)
}

// ComputeNextDue returns the next due date after from for the given
// frequency, normalized to midnight UTC. MONTHLY advances by one calendar
// month, so Jan 31 rolls into early March per Go's date arithmetic.
func ComputeNextDue(from time.Time, frequency string) time.Time {
	from = from.UTC()
	var next time.Time
	switch frequency {
	case model.FrequencyBiweekly:
		next = from.AddDate(0, 0, 14)
	case model.FrequencyMonthly:
		next = from.AddDate(0, 1, 0)
	default: // WEEKLY
		next = from.AddDate(0, 0, 7)
	}
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
}
