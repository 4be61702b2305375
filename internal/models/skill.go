package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// SkillSource records how a user came to hold a skill.
type SkillSource string

const (
	// SkillSourceManual marks a skill the user added themselves.
	SkillSourceManual SkillSource = "MANUAL"
	// SkillSourceEndorsed marks a skill validated by at least one peer.
	SkillSourceEndorsed SkillSource = "ENDORSED"
)

// Skill is a globally unique capability tag.
type Skill struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	NormalizedName string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Skill) TableName() string {
	return "skills"
}

func (s *Skill) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	if s.NormalizedName == "" {
		s.NormalizedName = NormalizeSkillName(s.Name)
	}
	return nil
}

// NormalizeSkillName is the registry key for skill lookups: trimmed, lowercased,
// inner whitespace collapsed to single spaces.
func NormalizeSkillName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CleanSkillName trims and collapses whitespace but keeps the caller's casing for display.
func CleanSkillName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// UserSkill links a user to a skill they hold.
type UserSkill struct {
	ID               string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID           string      `gorm:"type:varchar(191);not null;uniqueIndex:idx_user_skill" json:"user_id"`
	SkillID          string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_skill" json:"skill_id"`
	Source           SkillSource `gorm:"type:varchar(20);not null;default:'MANUAL';index" json:"source"`
	IsVisible        bool        `gorm:"not null;default:true" json:"is_visible"`
	EndorsementCount int         `gorm:"not null;default:0" json:"endorsement_count"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	Skill Skill `gorm:"foreignKey:SkillID" json:"skill"`
}

// TableName specifies the table name for GORM
func (UserSkill) TableName() string {
	return "user_skills"
}

func (us *UserSkill) BeforeCreate(_ *gorm.DB) error {
	ensureID(&us.ID)
	return nil
}
