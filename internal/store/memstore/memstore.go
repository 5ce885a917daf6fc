// Package memstore provides an in-memory store.Store used by unit tests.
// It mirrors the relational drivers' semantics, including sequence
// assignment, dedup on report periods, and TTL-based session deletion.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

type memStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	journals map[string]*model.Journal
	sessions map[string]*model.ChatSession
	messages map[string][]*model.ChatMessage
	reports  map[string]*model.MoodReport
}

// New returns an empty in-memory store.
func New() store.Store {
	return &memStore{
		users:    make(map[string]*model.User),
		journals: make(map[string]*model.Journal),
		sessions: make(map[string]*model.ChatSession),
		messages: make(map[string][]*model.ChatMessage),
		reports:  make(map[string]*model.MoodReport),
	}
}

func (s *memStore) Users() store.Users       { return &users{s} }
func (s *memStore) Journals() store.Journals { return &journals{s} }
func (s *memStore) Sessions() store.Sessions { return &sessions{s} }
func (s *memStore) Reports() store.Reports   { return &reports{s} }

func (s *memStore) HealthPing(ctx context.Context) error { return nil }

// --- Users ---

type users struct{ s *memStore }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[m.UserID]; ok {
		return nil, model.ErrConflict
	}
	out := *m
	out.CreationTime = time.Now().UTC()
	u.s.users[m.UserID] = &out
	cp := out
	return &cp, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	m, ok := u.s.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (u *users) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []*model.User
	for _, m := range u.s.users {
		if !m.NextReportDueDate.After(now) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextReportDueDate.Before(out[j].NextReportDueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (u *users) AdvanceDueDate(ctx context.Context, userID string, next time.Time) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	m, ok := u.s.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	m.NextReportDueDate = next
	return nil
}

// --- Journals ---

type journals struct{ s *memStore }

func (j *journals) Create(ctx context.Context, m *model.Journal) (*model.Journal, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	out := *m
	if out.JournalID == "" {
		out.JournalID = uuid.New().String()
	}
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	j.s.journals[out.JournalID] = &out
	cp := out
	return &cp, nil
}

func (j *journals) Get(ctx context.Context, userID, journalID string) (*model.Journal, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	m, ok := j.s.journals[journalID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (j *journals) List(ctx context.Context, req model.ListJournalsRequest) ([]*model.Journal, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	var out []*model.Journal
	for _, m := range j.s.journals {
		if m.UserID != req.UserID {
			continue
		}
		if req.Before != nil && !m.CreationTime.Before(*req.Before) {
			continue
		}
		if req.After != nil && !m.CreationTime.After(*req.After) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, jj int) bool { return out[i].CreationTime.After(out[jj].CreationTime) })
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (j *journals) ListRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Journal, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	var out []*model.Journal
	for _, m := range j.s.journals {
		if m.UserID != userID {
			continue
		}
		if m.CreationTime.Before(start) || !m.CreationTime.Before(end) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, jj int) bool { return out[i].CreationTime.Before(out[jj].CreationTime) })
	return out, nil
}

func (j *journals) Delete(ctx context.Context, userID, journalID string) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	m, ok := j.s.journals[journalID]
	if !ok || m.UserID != userID {
		return model.ErrNotFound
	}
	delete(j.s.journals, journalID)
	return nil
}

// --- Sessions ---

type sessions struct{ s *memStore }

func (se *sessions) Create(ctx context.Context, m *model.ChatSession) (*model.ChatSession, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	out := *m
	if out.SessionID == "" {
		out.SessionID = uuid.New().String()
	}
	now := time.Now().UTC()
	out.CreationTime = now
	out.UpdateTime = now
	se.s.sessions[out.SessionID] = &out
	cp := out
	return &cp, nil
}

func (se *sessions) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	m, ok := se.s.sessions[sessionID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (se *sessions) List(ctx context.Context, req model.ListSessionsRequest) ([]*model.ChatSession, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	var out []*model.ChatSession
	for _, m := range se.s.sessions {
		if m.UserID == req.UserID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdateTime.After(out[j].UpdateTime) })
	if req.Offset > 0 {
		if req.Offset >= len(out) {
			return nil, nil
		}
		out = out[req.Offset:]
	}
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (se *sessions) AppendMessage(ctx context.Context, sessionID, role, content string) (*model.ChatMessage, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	sess, ok := se.s.sessions[sessionID]
	if !ok {
		return nil, model.ErrNotFound
	}
	now := time.Now().UTC()
	msgs := se.s.messages[sessionID]
	var seq int64 = 1
	if len(msgs) > 0 {
		seq = msgs[len(msgs)-1].SeqNo + 1
	}
	m := &model.ChatMessage{
		SessionID:    sessionID,
		SeqNo:        seq,
		Role:         role,
		Content:      content,
		CreationTime: now,
	}
	se.s.messages[sessionID] = append(msgs, m)
	sess.UpdateTime = now
	cp := *m
	return &cp, nil
}

func (se *sessions) LastMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	msgs := se.s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*model.ChatMessage, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (se *sessions) Delete(ctx context.Context, userID, sessionID string) error {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	m, ok := se.s.sessions[sessionID]
	if !ok || m.UserID != userID {
		return model.ErrNotFound
	}
	delete(se.s.sessions, sessionID)
	delete(se.s.messages, sessionID)
	return nil
}

func (se *sessions) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	se.s.mu.Lock()
	defer se.s.mu.Unlock()
	var n int
	for id, m := range se.s.sessions {
		if !m.UpdateTime.After(cutoff) {
			delete(se.s.sessions, id)
			delete(se.s.messages, id)
			n++
		}
	}
	return n, nil
}

// --- Reports ---

type reports struct{ s *memStore }

func periodKey(userID string, start, end time.Time) string {
	return userID + "|" + start.UTC().Format(time.RFC3339) + "|" + end.UTC().Format(time.RFC3339)
}

func (r *reports) CreateIfAbsent(ctx context.Context, m *model.MoodReport) (*model.MoodReport, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := periodKey(m.UserID, m.PeriodStart, m.PeriodEnd)
	for _, existing := range r.s.reports {
		if periodKey(existing.UserID, existing.PeriodStart, existing.PeriodEnd) == key {
			cp := *existing
			return &cp, false, nil
		}
	}
	out := *m
	if out.ReportID == "" {
		out.ReportID = uuid.New().String()
	}
	out.CreationTime = time.Now().UTC()
	r.s.reports[out.ReportID] = &out
	cp := out
	return &cp, true, nil
}

func (r *reports) GetByPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := periodKey(userID, periodStart, periodEnd)
	for _, m := range r.s.reports {
		if periodKey(m.UserID, m.PeriodStart, m.PeriodEnd) == key {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *reports) GetByID(ctx context.Context, userID, reportID string) (*model.MoodReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.reports[reportID]
	if !ok || m.UserID != userID {
		return nil, model.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *reports) Latest(ctx context.Context, userID string) (*model.MoodReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *model.MoodReport
	for _, m := range r.s.reports {
		if m.UserID != userID {
			continue
		}
		if latest == nil || m.CreationTime.After(latest.CreationTime) {
			latest = m
		}
	}
	if latest == nil {
		return nil, model.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *reports) List(ctx context.Context, userID string, limit int) ([]*model.MoodReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.MoodReport
	for _, m := range r.s.reports {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
