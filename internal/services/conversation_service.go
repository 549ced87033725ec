package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/models"
)

// TurnHandler stores a user message and schedules the assistant's reply.
type TurnHandler interface {
	HandleTurn(ctx context.Context, conv *models.Conversation, content string) (*models.Message, error)
}

type ConversationService struct {
	db    core.DbClient
	turns TurnHandler
}

func NewConversationService(db core.DbClient, turns TurnHandler) *ConversationService {
	return &ConversationService{db: db, turns: turns}
}

// Active returns the user's single open conversation, creating it when needed.
func (s *ConversationService) Active(ctx context.Context, userID string) (*models.Conversation, error) {
	now := nowUTC()
	return s.db.EnsureActiveConversation(ctx, &models.Conversation{
		ID:            uuid.NewString(),
		UserID:        userID,
		StartedAt:     now,
		LastMessageAt: now,
	})
}

func (s *ConversationService) Close(ctx context.Context, userID, convID string) error {
	if _, err := s.owned(ctx, userID, convID); err != nil {
		return err
	}
	return s.db.CloseConversation(ctx, convID)
}

// Send accepts a user message; the reply arrives later as a message_update event.
func (s *ConversationService) Send(ctx context.Context, userID, convID, content string) (*models.Message, error) {
	conv, err := s.owned(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	return s.turns.HandleTurn(ctx, conv, content)
}

func (s *ConversationService) Messages(ctx context.Context, userID, convID string) ([]models.Message, error) {
	if _, err := s.owned(ctx, userID, convID); err != nil {
		return nil, err
	}
	return s.db.ListMessages(ctx, convID)
}

func (s *ConversationService) owned(ctx context.Context, userID, convID string) (*models.Conversation, error) {
	conv, err := s.db.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, models.WrapError(models.ErrNotFound, "get conversation", fmt.Errorf("conversation %s", convID))
	}
	return conv, nil
}
