package models

import (
	"time"

	"gorm.io/gorm"
)

// Message is a line in a swap's append-only chat log.
type Message struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	SwapID    string    `gorm:"type:varchar(36);not null;index:idx_messages_swap_created,priority:1" json:"swap_id"`
	SenderID  string    `gorm:"type:varchar(191);not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	MediaURL  string    `gorm:"type:text" json:"media_url,omitempty"`
	MediaType string    `gorm:"type:varchar(50)" json:"media_type,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_messages_swap_created,priority:2" json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
