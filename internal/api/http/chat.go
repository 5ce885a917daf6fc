package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/chat"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
)

// ChatHandler exposes the conversation manager over HTTP.
type ChatHandler struct {
	mgr *chat.Manager
}

// NewChatHandler creates a new chat handler
func NewChatHandler(mgr *chat.Manager) *ChatHandler {
	return &ChatHandler{mgr: mgr}
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// HandleChat handles POST /api/users/{userId}/chat and returns the full reply.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	sess, reply, err := h.mgr.Converse(r.Context(), userID, req.SessionID, req.Message)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": sess.SessionID,
		"reply":     reply,
	})
}

// HandleChatStream handles POST /api/users/{userId}/chat/stream. Reply
// fragments are sent as SSE data events; the terminal event carries the
// session id. If the upstream stream aborts, an error event is sent and no
// assistant message has been persisted.
func (h *ChatHandler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sess, _, err := h.mgr.ConverseStream(r.Context(), userID, req.SessionID, req.Message, func(delta string) {
		fmt.Fprintf(w, "data: %s\n\n", encodeSSE(map[string]string{"delta": delta}))
		flusher.Flush()
	})
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", encodeSSE(map[string]string{"error": "generation failed"}))
		flusher.Flush()
		return
	}

	fmt.Fprintf(w, "event: done\ndata: %s\n\n", encodeSSE(map[string]string{"sessionId": sess.SessionID}))
	flusher.Flush()
}

// ListSessions handles GET /api/users/{userId}/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	req := model.ListSessionsRequest{UserID: mux.Vars(r)["userId"]}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		req.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			respond.WriteBadRequest(w, "invalid offset")
			return
		}
		req.Offset = offset
	}

	sessions, err := h.mgr.ListSessions(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetHistory handles GET /api/users/{userId}/sessions/{sessionId}/messages
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	msgs, err := h.mgr.History(r.Context(), vars["userId"], vars["sessionId"], limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// DeleteSession handles DELETE /api/users/{userId}/sessions/{sessionId}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.mgr.DeleteSession(r.Context(), vars["userId"], vars["sessionId"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeSSE(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
