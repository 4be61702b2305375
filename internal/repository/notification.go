package repository

import (
	"context"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, page Page) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// ListDelayed returns unread notifications of the given types created at or before
	// cutoff, oldest first, with their recipient loaded.
	ListDelayed(ctx context.Context, types []models.NotificationType, cutoff time.Time, limit int) ([]models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(n).Error; err != nil {
		return translate(ctx, "notifications", "Create", err, "Notification", n.ID, "")
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(ctx, "notifications", "GetByID", err, "Notification", id, "")
	}
	return &n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, page Page) ([]models.Notification, error) {
	page = page.normalize(20, 100)
	var ns []models.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&ns).Error; err != nil {
		return nil, translate(ctx, "notifications", "ListForUser", err, "Notification", userID, "")
	}
	return ns, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		return 0, translate(ctx, "notifications", "CountUnread", err, "Notification", userID, "")
	}
	return n, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error; err != nil {
		return translate(ctx, "notifications", "MarkRead", err, "Notification", id, "")
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, translate(ctx, "notifications", "MarkAllRead", res.Error, "Notification", userID, "")
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) ListDelayed(ctx context.Context, types []models.NotificationType, cutoff time.Time, limit int) ([]models.Notification, error) {
	defer observability.TrackQuery("list_delayed", "notifications")()

	var ns []models.Notification
	if err := r.db.WithContext(ctx).Preload("User").
		Where("is_read = ? AND type IN ? AND created_at <= ?", false, types, cutoff).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&ns).Error; err != nil {
		return nil, translate(ctx, "notifications", "ListDelayed", err, "Notification", nil, "")
	}
	return ns, nil
}
