package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/services"
)

// UserHandler handles user-related HTTP requests (thin transport layer)
type UserHandler struct {
	svc *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(svc *services.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string `json:"userId"`
		Email           string `json:"email"`
		DisplayName     string `json:"displayName"`
		TimeZone        string `json:"timeZone"`
		ReportFrequency string `json:"reportFrequency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}

	u := &model.User{
		UserID:          req.UserID,
		Email:           req.Email,
		TimeZone:        req.TimeZone,
		ReportFrequency: req.ReportFrequency,
	}
	if req.DisplayName != "" {
		u.DisplayName = &req.DisplayName
	}
	user, err := h.svc.CreateUser(r.Context(), u)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/users/{userId}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user)
}
