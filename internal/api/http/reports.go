package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/report"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// ReportHandler exposes mood report generation and retrieval.
type ReportHandler struct {
	engine *report.Engine
	store  store.Store
}

// NewReportHandler creates a new report handler
func NewReportHandler(engine *report.Engine, st store.Store) *ReportHandler {
	return &ReportHandler{engine: engine, store: st}
}

// GenerateReport handles POST /api/users/{userId}/reports. Triggering an
// already generated period returns the stored report with 200.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req struct {
		PeriodStart time.Time `json:"periodStart"`
		PeriodEnd   time.Time `json:"periodEnd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	rep, err := h.engine.Generate(r.Context(), userID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// ListReports handles GET /api/users/{userId}/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	reports, err := h.store.Reports().List(r.Context(), userID, limit)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}

// LatestReport handles GET /api/users/{userId}/reports/latest
func (h *ReportHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	rep, err := h.store.Reports().Latest(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}

// GetReport handles GET /api/users/{userId}/reports/{reportId}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rep, err := h.store.Reports().GetByID(r.Context(), vars["userId"], vars["reportId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rep)
}
