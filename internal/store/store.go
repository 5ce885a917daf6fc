package store

import (
	"context"
	"time"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite)
// plus an in-memory variant for tests.
type Store interface {
	Users() Users
	Journals() Journals
	Sessions() Sessions
	Reports() Reports
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	// ListDue returns users whose next report due date is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.User, error)
	// AdvanceDueDate moves the user's next report due date forward.
	AdvanceDueDate(ctx context.Context, userID string, next time.Time) error
}

type Journals interface {
	Create(ctx context.Context, j *model.Journal) (*model.Journal, error)
	Get(ctx context.Context, userID, journalID string) (*model.Journal, error)
	List(ctx context.Context, req model.ListJournalsRequest) ([]*model.Journal, error)
	// ListRange returns the user's journals with creation time in [start, end),
	// oldest first. Feeds report aggregation.
	ListRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Journal, error)
	Delete(ctx context.Context, userID, journalID string) error
}

type Sessions interface {
	Create(ctx context.Context, s *model.ChatSession) (*model.ChatSession, error)
	Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	// List returns the user's sessions ordered by update time descending.
	List(ctx context.Context, req model.ListSessionsRequest) ([]*model.ChatSession, error)
	// AppendMessage assigns the next seq_no for the session and advances the
	// session's update time, all in one transaction. Returns the stored message.
	AppendMessage(ctx context.Context, sessionID, role, content string) (*model.ChatMessage, error)
	// LastMessages returns up to limit most recent messages in chronological order.
	LastMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
	Delete(ctx context.Context, userID, sessionID string) error
	// DeleteExpired removes sessions (and their messages) whose update time is
	// at or before the cutoff, returning the number of sessions removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

type Reports interface {
	// CreateIfAbsent persists the report unless one already exists for its
	// (userID, periodStart, periodEnd) key. It returns the stored report and
	// whether this call created it. The uniqueness check is atomic at the
	// storage layer; it holds across process instances.
	CreateIfAbsent(ctx context.Context, r *model.MoodReport) (*model.MoodReport, bool, error)
	// GetByPeriod looks up a report by its de-duplication key.
	GetByPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error)
	GetByID(ctx context.Context, userID, reportID string) (*model.MoodReport, error)
	// Latest returns the most recently created report for the user.
	Latest(ctx context.Context, userID string) (*model.MoodReport, error)
	List(ctx context.Context, userID string, limit int) ([]*model.MoodReport, error)
}
