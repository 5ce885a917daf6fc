package http

import (
	"net/http"
	"time"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/health"
)

// HealthHandler reports aggregate dependency health.
type HealthHandler struct {
	checker health.HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// CheckHealth handles GET /api/health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil || h.checker.IsHealthy() {
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "UP",
			"message":   "Service is healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"status":    "DOWN",
		"message":   "One or more dependencies unavailable",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
