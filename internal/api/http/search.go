package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/embeddings"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/search"
)

// SearchHandler handles POST /api/users/{userId}/search
type SearchHandler struct {
	embedder embeddings.Provider
	searcher search.Searcher
	alpha    float32
}

// NewSearchHandler instantiates the handler with dependencies.
func NewSearchHandler(embedder embeddings.Provider, searcher search.Searcher, alpha float32) *SearchHandler {
	return &SearchHandler{embedder: embedder, searcher: searcher, alpha: alpha}
}

// HandleSearch processes incoming hybrid search requests over the caller's
// journal entries.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"topK"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Query == "" {
		respond.WriteBadRequest(w, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}

	vec, err := h.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		log.Warn().Err(err).Msg("embedding failed")
		respond.WriteError(w, http.StatusInternalServerError, "embedding service unavailable")
		return
	}

	results, err := h.searcher.Search(r.Context(), userID, req.Query, vec, req.TopK, h.alpha)
	if err != nil {
		if errors.Is(err, search.ErrTenantNotFound) {
			// Nothing indexed for this user yet.
			respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"entries": []search.Result{},
				"count":   0,
			})
			return
		}
		log.Warn().Err(err).Msg("vector search failed")
		respond.WriteError(w, http.StatusInternalServerError, "search service unavailable")
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": results,
		"count":   len(results),
	})
}
