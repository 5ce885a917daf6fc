package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/services"
)

// JournalHandler handles journal entry HTTP requests.
type JournalHandler struct {
	svc *services.JournalService
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(svc *services.JournalService) *JournalHandler {
	return &JournalHandler{svc: svc}
}

// CreateJournal handles POST /api/users/{userId}/journals
func (h *JournalHandler) CreateJournal(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	journal, err := h.svc.CreateJournal(r.Context(), &model.Journal{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, journal)
}

// ListJournals handles GET /api/users/{userId}/journals
// Optional query params: limit, before, after (RFC3339).
func (h *JournalHandler) ListJournals(w http.ResponseWriter, r *http.Request) {
	req := model.ListJournalsRequest{UserID: mux.Vars(r)["userId"]}

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		req.Limit = limit
	}
	if v := q.Get("before"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.WriteBadRequest(w, "invalid before timestamp")
			return
		}
		req.Before = &ts
	}
	if v := q.Get("after"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.WriteBadRequest(w, "invalid after timestamp")
			return
		}
		req.After = &ts
	}

	journals, err := h.svc.ListJournals(r.Context(), req)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"journals": journals,
		"count":    len(journals),
	})
}

// GetJournal handles GET /api/users/{userId}/journals/{journalId}
func (h *JournalHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	journal, err := h.svc.GetJournal(r.Context(), vars["userId"], vars["journalId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, journal)
}

// DeleteJournal handles DELETE /api/users/{userId}/journals/{journalId}
func (h *JournalHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteJournal(r.Context(), vars["userId"], vars["journalId"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
