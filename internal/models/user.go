// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local record of an identity-provider principal.
type User struct {
	ID          string    `gorm:"type:varchar(191);primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(320);uniqueIndex;not null" json:"email"`
	Name        string    `gorm:"type:varchar(100)" json:"name"`
	Industry    string    `gorm:"type:varchar(100)" json:"industry"`
	Bio         string    `gorm:"type:varchar(500)" json:"bio"`
	AvatarURL   string    `gorm:"type:text" json:"avatar_url"`
	PhoneNumber string    `gorm:"type:varchar(20)" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Skills []UserSkill `gorm:"foreignKey:UserID" json:"skills,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate falls back to a generated ID for users created outside the identity flow (seeds, tests).
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
