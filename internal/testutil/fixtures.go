package testutil

import (
	"testing"
	"time"

	"skillswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateUser inserts a user with fake profile data. Overrides are applied before insert.
func CreateUser(t *testing.T, db *gorm.DB, overrides ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		ID:       "user_" + gofakeit.LetterN(12),
		Email:    gofakeit.Email(),
		Name:     gofakeit.Name(),
		Industry: gofakeit.JobDescriptor(),
	}
	for _, o := range overrides {
		o(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateSkill inserts a registry skill.
func CreateSkill(t *testing.T, db *gorm.DB, name string) *models.Skill {
	t.Helper()
	s := &models.Skill{Name: models.CleanSkillName(name), NormalizedName: models.NormalizeSkillName(name)}
	require.NoError(t, db.Create(s).Error)
	return s
}

// CreateProposal inserts an OPEN proposal owned by owner with one offered and one needed skill.
func CreateProposal(t *testing.T, db *gorm.DB, owner *models.User, overrides ...func(*models.Proposal)) *models.Proposal {
	t.Helper()
	p := &models.Proposal{
		OwnerID:       owner.ID,
		Title:         "Teach " + gofakeit.HackerNoun(),
		Description:   gofakeit.Sentence(12),
		Modality:      models.ModalityRemote,
		Status:        models.ProposalStatusOpen,
		OfferedSkills: []models.Skill{*CreateSkill(t, db, "Skill "+gofakeit.LetterN(8))},
		NeededSkills:  []models.Skill{*CreateSkill(t, db, "Skill "+gofakeit.LetterN(8))},
	}
	for _, o := range overrides {
		o(p)
	}
	require.NoError(t, db.Omit("OfferedSkills.*", "NeededSkills.*").Create(p).Error)
	return p
}

// CreateApplication inserts an application with the given status.
func CreateApplication(t *testing.T, db *gorm.DB, proposal *models.Proposal, applicant *models.User, status models.ApplicationStatus) *models.Application {
	t.Helper()
	a := &models.Application{
		ProposalID:   proposal.ID,
		ApplicantID:  applicant.ID,
		PitchMessage: "I would love to trade skills with you",
		Status:       status,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

// CreateSwap inserts a swap between the proposal owner and the applicant of app.
func CreateSwap(t *testing.T, db *gorm.DB, proposal *models.Proposal, app *models.Application, status models.SwapStatus) *models.Swap {
	t.Helper()
	now := time.Now().UTC()
	s := &models.Swap{
		ProposalID:    proposal.ID,
		ApplicationID: app.ID,
		TeacherID:     proposal.OwnerID,
		StudentID:     app.ApplicantID,
		Status:        status,
		StartedAt:     now,
	}
	if status == models.SwapStatusCompleted {
		s.CompletedAt = &now
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

// CompletedSwap builds the whole chain owner -> proposal -> accepted application -> completed swap.
func CompletedSwap(t *testing.T, db *gorm.DB, teacher, student *models.User) *models.Swap {
	t.Helper()
	p := CreateProposal(t, db, teacher)
	a := CreateApplication(t, db, p, student, models.ApplicationStatusAccepted)
	return CreateSwap(t, db, p, a, models.SwapStatusCompleted)
}
