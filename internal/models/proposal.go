package models

import (
	"time"

	"gorm.io/gorm"
)

// Modality is how a swap is carried out.
type Modality string

const (
	ModalityRemote   Modality = "REMOTE"
	ModalityInPerson Modality = "IN_PERSON"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	return m == ModalityRemote || m == ModalityInPerson
}

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus string

const (
	// ProposalStatusOpen accepts applications and is publicly listed.
	ProposalStatusOpen ProposalStatus = "OPEN"
	// ProposalStatusInProgress is set by the owner once swaps are under way.
	ProposalStatusInProgress ProposalStatus = "IN_PROGRESS"
	// ProposalStatusClosed is terminal.
	ProposalStatusClosed ProposalStatus = "CLOSED"
)

// Valid reports whether s is a known proposal status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusOpen, ProposalStatusInProgress, ProposalStatusClosed:
		return true
	}
	return false
}

// Proposal is a barter offer: the owner teaches the offered skills in exchange for the needed ones.
type Proposal struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID     string         `gorm:"type:varchar(191);not null;index" json:"owner_id"`
	Title       string         `gorm:"type:varchar(100);not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Modality    Modality       `gorm:"type:varchar(20);not null" json:"modality"`
	Status      ProposalStatus `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	Owner         *User         `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	OfferedSkills []Skill       `gorm:"many2many:proposal_offered_skills;" json:"offered_skills"`
	NeededSkills  []Skill       `gorm:"many2many:proposal_needed_skills;" json:"needed_skills"`
	Applications  []Application `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE" json:"applications,omitempty"`
	Swaps         []Swap        `gorm:"foreignKey:ProposalID" json:"swaps,omitempty"`
}

// TableName specifies the table name for GORM
func (Proposal) TableName() string {
	return "proposals"
}

func (p *Proposal) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
