package services

import (
	"context"
	"fmt"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/model"
	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/store"
)

// JournalService orchestrates journal entry use cases. Index propagation is
// handled out of band: the store writes an outbox row in the same
// transaction as each mutation and the outbox worker applies it.
type JournalService struct {
	store store.Store
}

func NewJournalService(s store.Store) *JournalService { return &JournalService{store: s} }

func (s *JournalService) CreateJournal(ctx context.Context, j *model.Journal) (*model.Journal, error) {
	if j.UserID == "" {
		return nil, fmt.Errorf("userId is required: %w", model.ErrValidation)
	}
	if j.Content == "" {
		return nil, fmt.Errorf("content is required: %w", model.ErrValidation)
	}
	if _, err := s.store.Users().Get(ctx, j.UserID); err != nil {
		return nil, err
	}
	return s.store.Journals().Create(ctx, j)
}

func (s *JournalService) GetJournal(ctx context.Context, userID, journalID string) (*model.Journal, error) {
	return s.store.Journals().Get(ctx, userID, journalID)
}

func (s *JournalService) ListJournals(ctx context.Context, req model.ListJournalsRequest) ([]*model.Journal, error) {
	return s.store.Journals().List(ctx, req)
}

func (s *JournalService) DeleteJournal(ctx context.Context, userID, journalID string) error {
	return s.store.Journals().Delete(ctx, userID, journalID)
}
