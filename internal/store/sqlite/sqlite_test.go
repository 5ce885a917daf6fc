//go:build local
// +build local

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// newMemoryDB opens a uniquely named in-memory database so tests stay isolated.
func newMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := NewWithDB(newMemoryDB(t))
	if err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s store.Store) *model.User {
	t.Helper()
	id := uuid.New().String()
	u, err := s.Users().Create(context.Background(), &model.User{
		UserID:            id,
		Email:             id + "@example.com",
		TimeZone:          "UTC",
		ReportFrequency:   model.FrequencyWeekly,
		NextReportDueDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestUserJournalCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s)

	got, err := s.Users().Get(ctx, u.UserID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != u.Email {
		t.Fatalf("expected email %s, got %s", u.Email, got.Email)
	}

	j, err := s.Journals().Create(ctx, &model.Journal{
		UserID:  u.UserID,
		Title:   "First entry",
		Content: "Slept badly but the walk helped.",
	})
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}
	if j.JournalID == "" {
		t.Fatal("expected generated journal id")
	}

	list, err := s.Journals().List(ctx, model.ListJournalsRequest{UserID: u.UserID})
	if err != nil {
		t.Fatalf("list journals: %v", err)
	}
	if len(list) != 1 || list[0].JournalID != j.JournalID {
		t.Fatalf("unexpected list result: %+v", list)
	}

	if err := s.Journals().Delete(ctx, u.UserID, j.JournalID); err != nil {
		t.Fatalf("delete journal: %v", err)
	}
	if _, err := s.Journals().Get(ctx, u.UserID, j.JournalID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestJournalWritesOutboxRows(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	u := seedUser(t, s)

	j, err := s.Journals().Create(ctx, &model.Journal{UserID: u.UserID, Content: "note"})
	if err != nil {
		t.Fatalf("create journal: %v", err)
	}
	if err := s.Journals().Delete(ctx, u.UserID, j.JournalID); err != nil {
		t.Fatalf("delete journal: %v", err)
	}

	var upserts, deletes int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE op='upsert_journal'`).Scan(&upserts); err != nil {
		t.Fatalf("count upserts: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox WHERE op='delete_journal'`).Scan(&deletes); err != nil {
		t.Fatalf("count deletes: %v", err)
	}
	if upserts != 1 || deletes != 1 {
		t.Fatalf("expected one outbox row per operation, got %d upserts %d deletes", upserts, deletes)
	}
}

func TestListJournalsAppliesBothRangeBounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s)

	var entries []*model.Journal
	for i := 0; i < 3; i++ {
		j, err := s.Journals().Create(ctx, &model.Journal{
			UserID:  u.UserID,
			Content: fmt.Sprintf("entry %d", i),
		})
		if err != nil {
			t.Fatalf("create journal: %v", err)
		}
		entries = append(entries, j)
		time.Sleep(2 * time.Millisecond)
	}

	after := entries[0].CreationTime
	before := entries[2].CreationTime
	list, err := s.Journals().List(ctx, model.ListJournalsRequest{
		UserID: u.UserID,
		After:  &after,
		Before: &before,
	})
	if err != nil {
		t.Fatalf("list journals: %v", err)
	}
	if len(list) != 1 || list[0].JournalID != entries[1].JournalID {
		t.Fatalf("expected only the middle entry, got %+v", list)
	}
}

func TestSessionSequenceAssignment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s)

	sess, err := s.Sessions().Create(ctx, &model.ChatSession{UserID: u.UserID, Title: "evening"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	m1, err := s.Sessions().AppendMessage(ctx, sess.SessionID, model.RoleUser, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	m2, err := s.Sessions().AppendMessage(ctx, sess.SessionID, model.RoleAssistant, "hi there")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if m1.SeqNo != 1 || m2.SeqNo != 2 {
		t.Fatalf("expected seq 1,2 got %d,%d", m1.SeqNo, m2.SeqNo)
	}

	msgs, err := s.Sessions().LastMessages(ctx, sess.SessionID, 10)
	if err != nil {
		t.Fatalf("last messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].SeqNo != 1 || msgs[1].SeqNo != 2 {
		t.Fatalf("expected chronological order, got %+v", msgs)
	}

	if _, err := s.Sessions().AppendMessage(ctx, uuid.New().String(), model.RoleUser, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing session, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s)

	sess, err := s.Sessions().Create(ctx, &model.ChatSession{UserID: u.UserID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := s.Sessions().AppendMessage(ctx, sess.SessionID, model.RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}

	n, err := s.Sessions().DeleteExpired(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 evicted session, got %d", n)
	}
	if _, err := s.Sessions().Get(ctx, u.UserID, sess.SessionID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after eviction, got %v", err)
	}
}

func TestReportCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s)

	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rep := &model.MoodReport{
		UserID:      u.UserID,
		PeriodStart: start,
		PeriodEnd:   end,
		MoodSummary: "A steady week.",
		KeyEmotions: map[string]float64{"calm": 0.7},
		Insights:    []string{"morning walks help"},
	}

	first, inserted, err := s.Reports().CreateIfAbsent(ctx, rep)
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	if !inserted {
		t.Fatal("expected first write to insert")
	}

	second, inserted, err := s.Reports().CreateIfAbsent(ctx, rep)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if inserted {
		t.Fatal("expected second write to be a no-op")
	}
	if second.ReportID != first.ReportID {
		t.Fatalf("expected existing report, got %s want %s", second.ReportID, first.ReportID)
	}
	if second.KeyEmotions["calm"] != 0.7 {
		t.Fatalf("emotions did not round-trip: %+v", second.KeyEmotions)
	}
}
