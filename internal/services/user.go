package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/report"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// UserService handles user-related operations. Identity and auth stay with
// the caller; this service only keeps the profile the backend needs for
// scheduling.
type UserService struct {
	store            store.Store
	defaultFrequency string
}

func NewUserService(s store.Store, defaultFrequency string) *UserService {
	if defaultFrequency == "" {
		defaultFrequency = model.FrequencyWeekly
	}
	return &UserService{store: s, defaultFrequency: defaultFrequency}
}

func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return nil, fmt.Errorf("a valid email is required: %w", model.ErrValidation)
	}
	if u.UserID == "" {
		u.UserID = uuid.New().String()
	}
	if u.TimeZone == "" {
		u.TimeZone = "UTC"
	}
	if u.ReportFrequency == "" {
		u.ReportFrequency = s.defaultFrequency
	}
	if !model.ValidFrequency(u.ReportFrequency) {
		return nil, fmt.Errorf("unsupported report frequency %q: %w", u.ReportFrequency, model.ErrValidation)
	}
	if u.NextReportDueDate.IsZero() {
		u.NextReportDueDate = report.ComputeNextDue(time.Now().UTC(), u.ReportFrequency)
	}
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().Get(ctx, userID)
}
