package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"gorm.io/gorm"
)

const maxMessagesPerPoll = 200

// SendMessageInput is the body of a chat message.
type SendMessageInput struct {
	Content   string `json:"content" validate:"required,min=1,max=1000"`
	MediaURL  string `json:"media_url" validate:"omitempty,url"`
	MediaType string `json:"media_type" validate:"omitempty,max=50"`
}

// MessageService is the per-swap chat between teacher and student.
type MessageService struct {
	messages repository.MessageRepository
	swaps    repository.SwapRepository
	effects  effects
}

// NewMessageService returns a new MessageService.
func NewMessageService(db *gorm.DB, n Notifiers) *MessageService {
	return &MessageService{
		messages: repository.NewMessageRepository(db),
		swaps:    repository.NewSwapRepository(db),
		effects:  newEffects(db, n),
	}
}

func (s *MessageService) participantSwap(ctx context.Context, userID, swapID string) (*models.Swap, error) {
	swap, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.IsParticipant(userID) {
		return nil, models.NewForbiddenError("You are not part of this swap")
	}
	return swap, nil
}

// SendMessage appends a message to the swap chat and notifies the other party.
func (s *MessageService) SendMessage(ctx context.Context, senderID, swapID string, in SendMessageInput) (*models.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	swap, err := s.participantSwap(ctx, senderID, swapID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		SwapID:    swapID,
		SenderID:  senderID,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	sender, _ := s.effects.users.GetByID(ctx, senderID)
	s.effects.notify(ctx, swap.Counterpart(senderID), models.NotificationMessageReceived,
		fmt.Sprintf("%s sent you a message", displayName(sender)), "/dashboard?swap="+swapID)
	return msg, nil
}

// ListMessages returns messages after since (all when zero), oldest first.
func (s *MessageService) ListMessages(ctx context.Context, requesterID, swapID string, since time.Time) ([]models.Message, error) {
	if _, err := s.participantSwap(ctx, requesterID, swapID); err != nil {
		return nil, err
	}
	return s.messages.ListForSwap(ctx, swapID, since, maxMessagesPerPoll)
}
