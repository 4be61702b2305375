package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is feedback one party of a completed swap leaves for the other.
type Review struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SwapID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_review_swap_author" json:"swap_id"`
	AuthorID   string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_review_swap_author" json:"author_id"`
	ReceiverID string    `gorm:"type:varchar(191);not null;index" json:"receiver_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Comment    string    `gorm:"type:varchar(500)" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// TableName specifies the table name for GORM
func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
