package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// SwapStatus is the state of an exchange between a teacher and a student.
type SwapStatus string

const (
	SwapStatusActive    SwapStatus = "ACTIVE"
	SwapStatusCompleted SwapStatus = "COMPLETED"
	SwapStatusCancelled SwapStatus = "CANCELLED"
)

// ParseSwapStatus accepts the legacy IN_PROGRESS spelling for ACTIVE.
func ParseSwapStatus(raw string) (SwapStatus, bool) {
	switch SwapStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case SwapStatusActive, "IN_PROGRESS":
		return SwapStatusActive, true
	case SwapStatusCompleted:
		return SwapStatusCompleted, true
	case SwapStatusCancelled:
		return SwapStatusCancelled, true
	}
	return "", false
}

// Swap is created exactly once from an accepted application.
type Swap struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ProposalID    string     `gorm:"type:varchar(36);not null;index" json:"proposal_id"`
	ApplicationID string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"application_id"`
	TeacherID     string     `gorm:"type:varchar(191);not null;index" json:"teacher_id"`
	StudentID     string     `gorm:"type:varchar(191);not null;index" json:"student_id"`
	Status        SwapStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Proposal *Proposal `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	Teacher  *User     `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Student  *User     `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName specifies the table name for GORM
func (Swap) TableName() string {
	return "swaps"
}

func (s *Swap) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsParticipant reports whether userID is the teacher or the student.
func (s *Swap) IsParticipant(userID string) bool {
	return userID != "" && (s.TeacherID == userID || s.StudentID == userID)
}

// Counterpart returns the other party of the swap.
func (s *Swap) Counterpart(userID string) string {
	if s.TeacherID == userID {
		return s.StudentID
	}
	return s.TeacherID
}
