package repository

import (
	"context"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// MessageRepository defines persistence operations for swap chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListForSwap(ctx context.Context, swapID string, since time.Time, limit int) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit("Sender").Create(msg).Error; err != nil {
		return translate(ctx, "messages", "Create", err, "Message", msg.ID, "")
	}
	return nil
}

// ListForSwap returns messages strictly after since (zero means from the start), oldest first.
func (r *messageRepository) ListForSwap(ctx context.Context, swapID string, since time.Time, limit int) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Preload("Sender").Where("swap_id = ?", swapID)
	if !since.IsZero() {
		q = q.Where("created_at > ?", since)
	}
	var msgs []models.Message
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, translate(ctx, "messages", "ListForSwap", err, "Message", swapID, "")
	}
	return msgs, nil
}
