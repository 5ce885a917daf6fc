package model

import "time"

// Report frequencies accepted on a user profile.
const (
	FrequencyWeekly   = "WEEKLY"
	FrequencyBiweekly = "BIWEEKLY"
	FrequencyMonthly  = "MONTHLY"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents an account in the system. Identity verification happens
// upstream; the backend trusts the userId it is handed.
type User struct {
	UserID            string    `json:"userId"`
	Email             string    `json:"email"`
	DisplayName       *string   `json:"displayName,omitempty"`
	TimeZone          string    `json:"timeZone"`
	ReportFrequency   string    `json:"reportFrequency"`
	NextReportDueDate time.Time `json:"nextReportDueDate"`
	CreationTime      time.Time `json:"creationTime"`
}

// Journal is a free-text journal entry. Immutable once created: report
// aggregation reads journals by creation time and never rewrites history.
type Journal struct {
	JournalID    string    `json:"journalId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CreationTime time.Time `json:"creationTime"`
}

// ChatSession is one user's conversation container.
type ChatSession struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// ChatMessage is a single turn inside a session. Ordering is defined by
// SeqNo, assigned by the store in the same transaction as the insert;
// wall-clock timestamps are informational only.
type ChatMessage struct {
	SessionID    string    `json:"sessionId"`
	SeqNo        int64     `json:"seqNo"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	CreationTime time.Time `json:"creationTime"`
}

// MoodReport is the structured summary of a user's journals over one
// [PeriodStart, PeriodEnd) window. Immutable once persisted; the
// (UserID, PeriodStart, PeriodEnd) tuple is the de-duplication key.
type MoodReport struct {
	ReportID        string             `json:"reportId"`
	UserID          string             `json:"userId"`
	PeriodStart     time.Time          `json:"periodStart"`
	PeriodEnd       time.Time          `json:"periodEnd"`
	MoodSummary     string             `json:"moodSummary"`
	KeyEmotions     map[string]float64 `json:"keyEmotions"`
	Insights        []string           `json:"insights"`
	Recommendations []string           `json:"recommendations"`
	Quote           string             `json:"quote"`
	CreationTime    time.Time          `json:"creationTime"`
}

// ListJournalsRequest captures filters used when listing journal entries.
type ListJournalsRequest struct {
	UserID string
	Limit  int
	Before *time.Time
	After  *time.Time
}

// ListSessionsRequest pages through a user's sessions, most recently
// updated first.
type ListSessionsRequest struct {
	UserID string
	Limit  int
	Offset int
}

// ValidFrequency reports whether f is one of the recognized report frequencies.
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}
