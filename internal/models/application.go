package models

import (
	"time"

	"gorm.io/gorm"
)

// ApplicationStatus is the state of a request to join a proposal.
type ApplicationStatus string

const (
	// ApplicationStatusPending is the only non-terminal state.
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusAccepted ApplicationStatus = "ACCEPTED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Application is a user's request to join a proposal.
type Application struct {
	ID           string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProposalID   string            `gorm:"type:varchar(36);not null;uniqueIndex:idx_application_proposal_applicant" json:"proposal_id"`
	ApplicantID  string            `gorm:"type:varchar(191);not null;uniqueIndex:idx_application_proposal_applicant;index" json:"applicant_id"`
	PitchMessage string            `gorm:"type:varchar(500);not null" json:"pitch_message"`
	Status       ApplicationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`

	Proposal  *Proposal `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	Applicant *User     `gorm:"foreignKey:ApplicantID" json:"applicant,omitempty"`
}

// TableName specifies the table name for GORM
func (Application) TableName() string {
	return "applications"
}

func (a *Application) BeforeCreate(_ *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
