package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

//go:embed schema.sql
var ddlFile string

// ddlStatements splits schema.sql into individual statements.
func ddlStatements() []string {
	parts := strings.Split(ddlFile, ";")
	var out []string
	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// New opens (or creates) the database file and applies the schema.
func New(path string) (store.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	s := &sqliteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wires an existing connection, applying the schema first. Used by
// the factory and by tests running on in-memory databases.
func NewWithDB(db *sql.DB) (store.Store, error) {
	s := &sqliteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range ddlStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *sqliteStore) Users() store.Users       { return &users{db: s.db} }
func (s *sqliteStore) Journals() store.Journals { return &journals{db: s.db} }
func (s *sqliteStore) Sessions() store.Sessions { return &sessions{db: s.db} }
func (s *sqliteStore) Reports() store.Reports   { return &reports{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	now := time.Now().UTC()
	_, err := u.db.ExecContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, report_frequency, next_report_due_date, creation_time)
        VALUES (?,?,?,?,?,?,?)
    `, m.UserID, m.Email, m.DisplayName, m.TimeZone, m.ReportFrequency, m.NextReportDueDate, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.CreationTime = now
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, report_frequency, next_report_due_date, creation_time
        FROM users WHERE user_id=?
    `, userID)
	if err := row.Scan(&out.UserID, &out.Email, &out.DisplayName, &out.TimeZone,
		&out.ReportFrequency, &out.NextReportDueDate, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (u *users) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.User, error) {
	query := `
        SELECT user_id, email, display_name, time_zone, report_frequency, next_report_due_date, creation_time
        FROM users WHERE next_report_due_date <= ? ORDER BY next_report_due_date ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := u.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.User
	for rows.Next() {
		var m model.User
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.TimeZone,
			&m.ReportFrequency, &m.NextReportDueDate, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (u *users) AdvanceDueDate(ctx context.Context, userID string, next time.Time) error {
	res, err := u.db.ExecContext(ctx, `UPDATE users SET next_report_due_date=? WHERE user_id=?`, next, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Journals ---

type journals struct{ db *sql.DB }

func (j *journals) Create(ctx context.Context, m *model.Journal) (*model.Journal, error) {
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	journalID := m.JournalID
	if journalID == "" {
		journalID = uuid.New().String()
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO journals (journal_id, user_id, title, content, creation_time)
        VALUES (?,?,?,?,?)
    `, journalID, m.UserID, m.Title, m.Content, now); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"userId":       m.UserID,
		"journalId":    journalID,
		"title":        m.Title,
		"content":      m.Content,
		"creationTime": now,
	}
	if err := writeOutbox(ctx, tx, "upsert_journal", journalID, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *m
	out.JournalID = journalID
	out.CreationTime = now
	return &out, nil
}

func (j *journals) Get(ctx context.Context, userID, journalID string) (*model.Journal, error) {
	var out model.Journal
	out.UserID = userID
	out.JournalID = journalID
	row := j.db.QueryRowContext(ctx, `
        SELECT title, content, creation_time FROM journals WHERE user_id=? AND journal_id=?
    `, userID, journalID)
	if err := row.Scan(&out.Title, &out.Content, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (j *journals) List(ctx context.Context, req model.ListJournalsRequest) ([]*model.Journal, error) {
	query := `SELECT journal_id, user_id, title, content, creation_time
              FROM journals WHERE user_id=?`
	args := []interface{}{req.UserID}
	if req.Before != nil {
		query += " AND creation_time < ?"
		args = append(args, *req.Before)
	}
	if req.After != nil {
		query += " AND creation_time > ?"
		args = append(args, *req.After)
	}
	query += " ORDER BY creation_time DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanJournals(rows)
}

func (j *journals) ListRange(ctx context.Context, userID string, start, end time.Time) ([]*model.Journal, error) {
	rows, err := j.db.QueryContext(ctx, `
        SELECT journal_id, user_id, title, content, creation_time
        FROM journals WHERE user_id=? AND creation_time >= ? AND creation_time < ?
        ORDER BY creation_time ASC
    `, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanJournals(rows)
}

func (j *journals) Delete(ctx context.Context, userID, journalID string) error {
	tx, err := j.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `DELETE FROM journals WHERE user_id=? AND journal_id=?`, userID, journalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	if err := writeOutbox(ctx, tx, "delete_journal", journalID, map[string]interface{}{"userId": userID}, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

func scanJournals(rows *sql.Rows) ([]*model.Journal, error) {
	var out []*model.Journal
	for rows.Next() {
		var m model.Journal
		if err := rows.Scan(&m.JournalID, &m.UserID, &m.Title, &m.Content, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Sessions ---

type sessions struct{ db *sql.DB }

func (s *sessions) Create(ctx context.Context, m *model.ChatSession) (*model.ChatSession, error) {
	sessionID := m.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_sessions (session_id, user_id, title, creation_time, update_time)
        VALUES (?,?,?,?,?)
    `, sessionID, m.UserID, m.Title, now, now); err != nil {
		return nil, err
	}
	out := *m
	out.SessionID = sessionID
	out.CreationTime = now
	out.UpdateTime = now
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	var out model.ChatSession
	out.UserID = userID
	out.SessionID = sessionID
	row := s.db.QueryRowContext(ctx, `
        SELECT title, creation_time, update_time
        FROM chat_sessions WHERE user_id=? AND session_id=?
    `, userID, sessionID)
	if err := row.Scan(&out.Title, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (s *sessions) List(ctx context.Context, req model.ListSessionsRequest) ([]*model.ChatSession, error) {
	query := `SELECT session_id, user_id, title, creation_time, update_time
              FROM chat_sessions WHERE user_id=? ORDER BY update_time DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", req.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, req.UserID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.ChatSession
	for rows.Next() {
		var m model.ChatSession
		if err := rows.Scan(&m.SessionID, &m.UserID, &m.Title, &m.CreationTime, &m.UpdateTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *sessions) AppendMessage(ctx context.Context, sessionID, role, content string) (*model.ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET update_time=? WHERE session_id=?`, now, sessionID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `
        SELECT COALESCE(MAX(seq_no), 0) + 1 FROM chat_messages WHERE session_id=?
    `, sessionID).Scan(&seq); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO chat_messages (session_id, seq_no, role, content, creation_time)
        VALUES (?,?,?,?,?)
    `, sessionID, seq, role, content, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &model.ChatMessage{
		SessionID:    sessionID,
		SeqNo:        seq,
		Role:         role,
		Content:      content,
		CreationTime: now,
	}, nil
}

func (s *sessions) LastMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	query := `SELECT session_id, seq_no, role, content, creation_time
              FROM chat_messages WHERE session_id=? ORDER BY seq_no DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.SessionID, &m.SeqNo, &m.Role, &m.Content, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, jj := 0, len(out)-1; i < jj; i, jj = i+1, jj-1 {
		out[i], out[jj] = out[jj], out[i]
	}
	return out, nil
}

func (s *sessions) Delete(ctx context.Context, userID, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM chat_messages WHERE session_id IN
            (SELECT session_id FROM chat_sessions WHERE user_id=? AND session_id=?)
    `, userID, sessionID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id=? AND session_id=?`, userID, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}

func (s *sessions) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        DELETE FROM chat_messages WHERE session_id IN
            (SELECT session_id FROM chat_sessions WHERE update_time <= ?)
    `, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE update_time <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

// --- Reports ---

type reports struct{ db *sql.DB }

func (r *reports) CreateIfAbsent(ctx context.Context, m *model.MoodReport) (*model.MoodReport, bool, error) {
	reportID := m.ReportID
	if reportID == "" {
		reportID = uuid.New().String()
	}
	emotionsJSON, _ := json.Marshal(m.KeyEmotions)
	insightsJSON, _ := json.Marshal(m.Insights)
	recsJSON, _ := json.Marshal(m.Recommendations)
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
        INSERT INTO mood_reports
            (report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time)
        VALUES (?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT (user_id, period_start, period_end) DO NOTHING
    `, reportID, m.UserID, m.PeriodStart, m.PeriodEnd, m.MoodSummary,
		string(emotionsJSON), string(insightsJSON), string(recsJSON), m.Quote, now)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		out := *m
		out.ReportID = reportID
		out.CreationTime = now
		return &out, true, nil
	}

	existing, err := r.GetByPeriod(ctx, m.UserID, m.PeriodStart, m.PeriodEnd)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *reports) GetByPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=? AND period_start=? AND period_end=?
    `, userID, periodStart, periodEnd)
	return scanReport(row)
}

func (r *reports) GetByID(ctx context.Context, userID, reportID string) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=? AND report_id=?
    `, userID, reportID)
	return scanReport(row)
}

func (r *reports) Latest(ctx context.Context, userID string) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=? ORDER BY creation_time DESC LIMIT 1
    `, userID)
	return scanReport(row)
}

func (r *reports) List(ctx context.Context, userID string, limit int) ([]*model.MoodReport, error) {
	query := `SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
              FROM mood_reports WHERE user_id=? ORDER BY period_start DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.MoodReport
	for rows.Next() {
		m, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*model.MoodReport, error) {
	m, err := scanReportRow(row)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return m, nil
}

func scanReportRow(row rowScanner) (*model.MoodReport, error) {
	var m model.MoodReport
	var emotions, insights, recs string
	if err := row.Scan(&m.ReportID, &m.UserID, &m.PeriodStart, &m.PeriodEnd, &m.MoodSummary,
		&emotions, &insights, &recs, &m.Quote, &m.CreationTime); err != nil {
		return nil, err
	}
	if emotions != "" {
		_ = json.Unmarshal([]byte(emotions), &m.KeyEmotions)
	}
	if insights != "" {
		_ = json.Unmarshal([]byte(insights), &m.Insights)
	}
	if recs != "" {
		_ = json.Unmarshal([]byte(recs), &m.Recommendations)
	}
	return &m, nil
}

// --- helpers ---

func writeOutbox(ctx context.Context, tx *sql.Tx, op string, aggregateID string, payload map[string]interface{}, now time.Time) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO outbox (aggregate_id, op, payload, next_attempt_at, creation_time, update_time)
        VALUES (?,?,?,?,?,?)
    `, aggregateID, op, string(b), now, now, now)
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
