package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType names the lifecycle event a notification reports.
type NotificationType string

const (
	NotificationApplicationReceived NotificationType = "APPLICATION_RECEIVED"
	NotificationApplicationAccepted NotificationType = "APPLICATION_ACCEPTED"
	NotificationApplicationRejected NotificationType = "APPLICATION_REJECTED"
	NotificationSwapStarted         NotificationType = "SWAP_STARTED"
	NotificationMessageReceived     NotificationType = "MESSAGE_RECEIVED"
	NotificationReviewReceived      NotificationType = "REVIEW_RECEIVED"
)

// Notification is an in-app event record for one recipient.
type Notification struct {
	ID        string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string           `gorm:"type:varchar(191);not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(40);not null;index:idx_notifications_delayed,priority:2" json:"type"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Link      string           `gorm:"type:text" json:"link"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notifications_delayed,priority:1" json:"is_read"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_delayed,priority:3" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
