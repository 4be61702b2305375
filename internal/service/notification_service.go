package service

import (
	"context"
	"encoding/json"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
)

const emitTimeout = 5 * time.Second

// Publisher pushes a realtime payload to a user's connections.
type Publisher interface {
	PublishUser(ctx context.Context, userID string, payload string) error
}

// Emitter records in-app notifications. Emit never fails the caller.
type Emitter interface {
	Emit(ctx context.Context, userID string, kind models.NotificationType, message, link string)
}

// NotificationService stores, lists and acknowledges in-app notifications.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

// NewNotificationService returns a new NotificationService. publisher may be nil.
func NewNotificationService(repo repository.NotificationRepository, publisher Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// Emit stores a notification for userID and pushes it to live connections. It runs on
// a context detached from the request so a client disconnect cannot drop it, and any
// failure is logged and swallowed.
func (s *NotificationService) Emit(ctx context.Context, userID string, kind models.NotificationType, message, link string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	n := &models.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
		Link:    link,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		observability.NotificationEmitFailures.Inc()
		observability.LogBestEffortFailure(ctx, "notification.emit", err, map[string]any{
			"user_id": userID,
			"type":    string(kind),
		})
		return
	}
	observability.NotificationsEmitted.WithLabelValues(string(kind)).Inc()

	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(realtimeEvent{Type: "notification", Payload: n})
	if err != nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, userID, string(payload)); err != nil {
		observability.LogBestEffortFailure(ctx, "notification.publish", err, map[string]any{"user_id": userID})
	}
}

type realtimeEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, repository.Page{Limit: limit, Offset: offset})
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification read. Another user's notification reports NotFound
// so its existence is not revealed. Marking an already read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, models.NewNotFoundError("Notification", notificationID)
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead marks every unread notification of the user read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
