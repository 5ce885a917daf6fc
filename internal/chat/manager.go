// Package chat manages assistant conversations: persisted multi-turn
// sessions, context assembly under a message budget, and retention-based
// eviction.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/genai"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/keylock"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

const systemPrompt = "You are a supportive journaling companion. " +
	"Respond with empathy, stay grounded in what the user has shared, " +
	"and never present yourself as a clinician."

// Manager owns conversation state. All mutations of a session funnel through
// the per-session lock so concurrent requests serialize and sequence numbers
// stay gapless.
type Manager struct {
	store     store.Store
	generator genai.Generator
	locks     *keylock.KeyedMutex
	log       zerolog.Logger

	retentionTTL time.Duration
	windowBudget int

	// test seam
	now func() time.Time
}

// NewManager constructs a Manager.
func NewManager(st store.Store, gen genai.Generator, retentionTTL time.Duration, windowBudget int, log zerolog.Logger) *Manager {
	return &Manager{
		store:        st,
		generator:    gen,
		locks:        keylock.New(),
		log:          log,
		retentionTTL: retentionTTL,
		windowBudget: windowBudget,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StartOrContinue resolves the target session. An empty sessionID starts a
// fresh session titled from the first message. A session that exists but has
// passed its retention cutoff is expired and reported as not found even if
// the sweeper has not removed it yet.
func (m *Manager) StartOrContinue(ctx context.Context, userID, sessionID, firstMessage string) (*model.ChatSession, error) {
	if userID == "" {
		return nil, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	if sessionID == "" {
		return m.store.Sessions().Create(ctx, &model.ChatSession{
			UserID: userID,
			Title:  deriveTitle(firstMessage),
		})
	}
	sess, err := m.store.Sessions().Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if m.expired(sess) {
		return nil, model.ErrNotFound
	}
	return sess, nil
}

// AssembleContext returns the system prompt plus the most recent messages of
// the session, oldest first, capped at the window budget. The budget keeps a
// suffix of append order: when it is exceeded the oldest messages fall out
// first.
func (m *Manager) AssembleContext(ctx context.Context, sessionID string) ([]genai.Message, error) {
	msgs, err := m.store.Sessions().LastMessages(ctx, sessionID, m.windowBudget)
	if err != nil {
		return nil, err
	}
	out := make([]genai.Message, 0, len(msgs)+1)
	out = append(out, genai.Message{Role: "system", Content: systemPrompt})
	for _, msg := range msgs {
		out = append(out, genai.Message{Role: msg.Role, Content: msg.Content})
	}
	return out, nil
}

// AppendFinalizedReply persists a fully received assistant reply.
func (m *Manager) AppendFinalizedReply(ctx context.Context, sessionID, content string) (*model.ChatMessage, error) {
	return m.store.Sessions().AppendMessage(ctx, sessionID, model.RoleAssistant, content)
}

// Converse runs one full turn: persist the user message, assemble context,
// call the generator, persist the finalized reply. The session lock is held
// for the whole turn.
func (m *Manager) Converse(ctx context.Context, userID, sessionID, message string) (*model.ChatSession, string, error) {
	return m.converse(ctx, userID, sessionID, message, nil)
}

// ConverseStream behaves like Converse but forwards reply fragments through
// onDelta as they arrive. If the stream is aborted before the terminal
// signal, no assistant message is persisted; the user message stays.
func (m *Manager) ConverseStream(ctx context.Context, userID, sessionID, message string, onDelta func(string)) (*model.ChatSession, string, error) {
	return m.converse(ctx, userID, sessionID, message, onDelta)
}

func (m *Manager) converse(ctx context.Context, userID, sessionID, message string, onDelta func(string)) (*model.ChatSession, string, error) {
	if message == "" {
		return nil, "", fmt.Errorf("message is required: %w", model.ErrValidation)
	}

	sess, err := m.StartOrContinue(ctx, userID, sessionID, message)
	if err != nil {
		return nil, "", err
	}

	if err := m.locks.Lock(ctx, sess.SessionID); err != nil {
		return nil, "", err
	}
	defer m.locks.Unlock(sess.SessionID)

	if _, err := m.store.Sessions().AppendMessage(ctx, sess.SessionID, model.RoleUser, message); err != nil {
		return nil, "", err
	}

	msgs, err := m.AssembleContext(ctx, sess.SessionID)
	if err != nil {
		return nil, "", err
	}

	var reply string
	if onDelta != nil {
		reply, err = m.generator.GenerateStream(ctx, msgs, onDelta)
	} else {
		reply, err = m.generator.Generate(ctx, msgs)
	}
	if err != nil {
		// Upstream failed or the stream broke; the user message is kept, no
		// assistant turn is recorded.
		m.log.Warn().Err(err).Str("session_id", sess.SessionID).Msg("generation failed; reply not persisted")
		return sess, "", err
	}

	if _, err := m.AppendFinalizedReply(ctx, sess.SessionID, reply); err != nil {
		return nil, "", err
	}
	return sess, reply, nil
}

// ListSessions lists the caller's sessions, most recently active first.
// Expired sessions are filtered out even before the sweeper removes them.
func (m *Manager) ListSessions(ctx context.Context, req model.ListSessionsRequest) ([]*model.ChatSession, error) {
	sessions, err := m.store.Sessions().List(ctx, req)
	if err != nil {
		return nil, err
	}
	out := sessions[:0]
	for _, s := range sessions {
		if !m.expired(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// GetSession returns a single owned, unexpired session.
func (m *Manager) GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	sess, err := m.store.Sessions().Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if m.expired(sess) {
		return nil, model.ErrNotFound
	}
	return sess, nil
}

// History returns up to limit most recent messages of an owned session in
// chronological order.
func (m *Manager) History(ctx context.Context, userID, sessionID string, limit int) ([]*model.ChatMessage, error) {
	if _, err := m.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return m.store.Sessions().LastMessages(ctx, sessionID, limit)
}

// DeleteSession removes an owned session and its messages.
func (m *Manager) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return m.store.Sessions().Delete(ctx, userID, sessionID)
}

// EvictExpired removes every session idle past the retention cutoff and
// returns the number of sessions removed.
func (m *Manager) EvictExpired(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.retentionTTL)
	n, err := m.store.Sessions().DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.Info().Int("sessions", n).Time("cutoff", cutoff).Msg("evicted expired sessions")
	}
	return n, nil
}

// expired matches the inclusive cutoff of Sessions.DeleteExpired: a session
// exactly at the retention horizon is hidden from reads and sweepable.
func (m *Manager) expired(s *model.ChatSession) bool {
	return m.now().Sub(s.UpdateTime) >= m.retentionTTL
}

func deriveTitle(firstMessage string) string {
	const max = 60
	runes := []rune(firstMessage)
	if len(runes) <= max {
		return firstMessage
	}
	return string(runes[:max])
}
