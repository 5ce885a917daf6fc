package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Users() store.Users       { return &users{db: s.db} }
func (s *pgStore) Journals() store.Journals { return &journals{db: s.db} }
func (s *pgStore) Sessions() store.Sessions { return &sessions{db: s.db} }
func (s *pgStore) Reports() store.Reports   { return &reports{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap performs a connectivity check to ensure Postgres is reachable.
// Ping-only: compose migrations handle schema setup.
func Bootstrap(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil
	}
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.PingContext(ctx)
}

// --- Users ---

type users struct{ db *sql.DB }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	var created time.Time
	row := u.db.QueryRowContext(ctx, `
        INSERT INTO users (user_id, email, display_name, time_zone, report_frequency, next_report_due_date)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING creation_time
    `, m.UserID, m.Email, m.DisplayName, m.TimeZone, m.ReportFrequency, m.NextReportDueDate)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.CreationTime = created
	return &out, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	row := u.db.QueryRowContext(ctx, `
        SELECT user_id, email, display_name, time_zone, report_frequency, next_report_due_date, creation_time
        FROM users WHERE user_id=$1
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
        FROM users WHERE next_report_due_date <= $1 ORDER BY next_report_due_date ASC`
	args := []interface{}{now}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := u.db.QueryContext(ctx, query, args...)
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
	res, err := u.db.ExecContext(ctx, `UPDATE users SET next_report_due_date=$1 WHERE user_id=$2`, next, userID)
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
	var created time.Time
	row := tx.QueryRowContext(ctx, `
        INSERT INTO journals (journal_id, user_id, title, content)
        VALUES ($1,$2,$3,$4)
        RETURNING creation_time
    `, journalID, m.UserID, m.Title, m.Content)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}

	// Embedding is an explicit queued task, not a fire-and-forget goroutine.
	payload := map[string]interface{}{
		"userId":       m.UserID,
		"journalId":    journalID,
		"title":        m.Title,
		"content":      m.Content,
		"creationTime": created,
	}
	if err := writeOutbox(ctx, tx, "upsert_journal", journalID, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	out := *m
	out.JournalID = journalID
	out.CreationTime = created
	return &out, nil
}

func (j *journals) Get(ctx context.Context, userID, journalID string) (*model.Journal, error) {
	var out model.Journal
	out.UserID = userID
	out.JournalID = journalID
	row := j.db.QueryRowContext(ctx, `
        SELECT title, content, creation_time FROM journals WHERE user_id=$1 AND journal_id=$2
    `, userID, journalID)
	if err := row.Scan(&out.Title, &out.Content, &out.CreationTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (j *journals) List(ctx context.Context, req model.ListJournalsRequest) ([]*model.Journal, error) {
	query := `SELECT journal_id, user_id, title, content, creation_time
              FROM journals WHERE user_id=$1`
	args := []interface{}{req.UserID}
	if req.Before != nil {
		args = append(args, *req.Before)
		query += fmt.Sprintf(" AND creation_time < $%d", len(args))
	}
	if req.After != nil {
		args = append(args, *req.After)
		query += fmt.Sprintf(" AND creation_time > $%d", len(args))
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
        FROM journals WHERE user_id=$1 AND creation_time >= $2 AND creation_time < $3
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
	res, err := tx.ExecContext(ctx, `DELETE FROM journals WHERE user_id=$1 AND journal_id=$2`, userID, journalID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.ErrNotFound
	}
	if err := writeOutbox(ctx, tx, "delete_journal", journalID, map[string]interface{}{"userId": userID}); err != nil {
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
	var created time.Time
	row := s.db.QueryRowContext(ctx, `
        INSERT INTO chat_sessions (session_id, user_id, title)
        VALUES ($1,$2,$3)
        RETURNING creation_time
    `, sessionID, m.UserID, m.Title)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out := *m
	out.SessionID = sessionID
	out.CreationTime = created
	out.UpdateTime = created
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	var out model.ChatSession
	out.UserID = userID
	out.SessionID = sessionID
	row := s.db.QueryRowContext(ctx, `
        SELECT title, creation_time, update_time
        FROM chat_sessions WHERE user_id=$1 AND session_id=$2
    `, userID, sessionID)
	if err := row.Scan(&out.Title, &out.CreationTime, &out.UpdateTime); err != nil {
		return nil, mapNoRows(err)
	}
	return &out, nil
}

func (s *sessions) List(ctx context.Context, req model.ListSessionsRequest) ([]*model.ChatSession, error) {
	query := `SELECT session_id, user_id, title, creation_time, update_time
              FROM chat_sessions WHERE user_id=$1 ORDER BY update_time DESC`
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

// AppendMessage assigns seq_no and advances update_time inside one
// transaction. The UPDATE on chat_sessions takes the row lock first, so two
// appends to the same session racing past the in-process lock still
// serialize at the database and cannot claim the same seq_no.
func (s *sessions) AppendMessage(ctx context.Context, sessionID, role, content string) (*model.ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET update_time = now() WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `
        SELECT COALESCE(MAX(seq_no), 0) + 1 FROM chat_messages WHERE session_id=$1
    `, sessionID).Scan(&seq); err != nil {
		return nil, err
	}

	var created time.Time
	if err := tx.QueryRowContext(ctx, `
        INSERT INTO chat_messages (session_id, seq_no, role, content)
        VALUES ($1,$2,$3,$4)
        RETURNING creation_time
    `, sessionID, seq, role, content).Scan(&created); err != nil {
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
		CreationTime: created,
	}, nil
}

func (s *sessions) LastMessages(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	query := `SELECT session_id, seq_no, role, content, creation_time
              FROM chat_messages WHERE session_id=$1 ORDER BY seq_no DESC`
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
	// Fetched newest-first; return chronological.
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
            (SELECT session_id FROM chat_sessions WHERE user_id=$1 AND session_id=$2)
    `, userID, sessionID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id=$1 AND session_id=$2`, userID, sessionID)
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
            (SELECT session_id FROM chat_sessions WHERE update_time <= $1)
    `, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE update_time <= $1`, cutoff)
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

	var created time.Time
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO mood_reports
            (report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (user_id, period_start, period_end) DO NOTHING
        RETURNING creation_time
    `, reportID, m.UserID, m.PeriodStart, m.PeriodEnd, m.MoodSummary,
		emotionsJSON, insightsJSON, recsJSON, m.Quote).Scan(&created)
	if err == nil {
		out := *m
		out.ReportID = reportID
		out.CreationTime = created
		return &out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Lost the insert race: the existing row wins.
	existing, err := r.GetByPeriod(ctx, m.UserID, m.PeriodStart, m.PeriodEnd)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *reports) GetByPeriod(ctx context.Context, userID string, periodStart, periodEnd time.Time) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=$1 AND period_start=$2 AND period_end=$3
    `, userID, periodStart, periodEnd)
	return scanReport(row)
}

func (r *reports) GetByID(ctx context.Context, userID, reportID string) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=$1 AND report_id=$2
    `, userID, reportID)
	return scanReport(row)
}

func (r *reports) Latest(ctx context.Context, userID string) (*model.MoodReport, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
        FROM mood_reports WHERE user_id=$1 ORDER BY creation_time DESC LIMIT 1
    `, userID)
	return scanReport(row)
}

func (r *reports) List(ctx context.Context, userID string, limit int) ([]*model.MoodReport, error) {
	query := `SELECT report_id, user_id, period_start, period_end, mood_summary, key_emotions, insights, recommendations, quote, creation_time
              FROM mood_reports WHERE user_id=$1 ORDER BY period_start DESC`
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
	var emotions, insights, recs []byte
	if err := row.Scan(&m.ReportID, &m.UserID, &m.PeriodStart, &m.PeriodEnd, &m.MoodSummary,
		&emotions, &insights, &recs, &m.Quote, &m.CreationTime); err != nil {
		return nil, err
	}
	if len(emotions) > 0 {
		_ = json.Unmarshal(emotions, &m.KeyEmotions)
	}
	if len(insights) > 0 {
		_ = json.Unmarshal(insights, &m.Insights)
	}
	if len(recs) > 0 {
		_ = json.Unmarshal(recs, &m.Recommendations)
	}
	return &m, nil
}

// --- helpers ---

func writeOutbox(ctx context.Context, tx *sql.Tx, op string, aggregateID string, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO outbox (aggregate_id, op, payload) VALUES ($1,$2,$3)`, aggregateID, op, b)
	return err
}

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
