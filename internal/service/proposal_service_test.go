package service

import (
	"context"
	"strings"
	"testing"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProposalInput() CreateProposalInput {
	return CreateProposalInput{
		Title:         "Guitar for Go lessons",
		Description:   "I teach beginner guitar and want to learn Go concurrency.",
		Modality:      "REMOTE",
		OfferedSkills: []string{"Guitar"},
		NeededSkills:  []string{"Go"},
	}
}

func TestProposalService_CreateProposal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)

	t.Run("resolves skills case-insensitively", func(t *testing.T) {
		in := validProposalInput()
		in.OfferedSkills = []string{"  react ", "React", "TypeScript"}
		in.NeededSkills = []string{"Go"}
		in.Modality = "in_person"

		p, err := e.proposals.CreateProposal(ctx, owner.ID, in)
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusOpen, p.Status)
		assert.Equal(t, models.ModalityInPerson, p.Modality)
		assert.Len(t, p.OfferedSkills, 2)

		again := validProposalInput()
		again.OfferedSkills = []string{"REACT"}
		p2, err := e.proposals.CreateProposal(ctx, owner.ID, again)
		require.NoError(t, err)
		assert.Equal(t, p.OfferedSkills[0].ID, p2.OfferedSkills[0].ID)

		var count int64
		require.NoError(t, e.db.Model(&models.Skill{}).Where("normalized_name = ?", "react").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*CreateProposalInput)
			msg    string
		}{
			{"short title", func(in *CreateProposalInput) { in.Title = "  Go  " }, "title must be at least 5 characters"},
			{"long title", func(in *CreateProposalInput) { in.Title = strings.Repeat("x", 101) }, "title must be at most 100 characters"},
			{"short description", func(in *CreateProposalInput) { in.Description = "too short" }, "description"},
			{"bad modality", func(in *CreateProposalInput) { in.Modality = "HYBRID" }, "modality must be one of: REMOTE, IN_PERSON"},
			{"no offered skills", func(in *CreateProposalInput) { in.OfferedSkills = nil }, "offered_skills"},
			{"no needed skills", func(in *CreateProposalInput) { in.NeededSkills = []string{} }, "needed_skills"},
			{"bad skill name", func(in *CreateProposalInput) { in.NeededSkills = []string{"Go", "<b>"} }, "needed_skills[1]"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := validProposalInput()
				tt.mutate(&in)
				_, err := e.proposals.CreateProposal(ctx, owner.ID, in)
				assertCode(t, err, models.CodeValidation)
				assert.Contains(t, err.Error(), tt.msg)
			})
		}
	})
}

func TestProposalService_ListPublicProposals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db, func(u *models.User) { u.Name = "Grace Hopper" })
	student := testutil.CreateUser(t, e.db)

	open, err := e.proposals.CreateProposal(ctx, owner.ID, validProposalInput())
	require.NoError(t, err)
	closed := testutil.CreateProposal(t, e.db, owner, func(p *models.Proposal) { p.Status = models.ProposalStatusClosed })
	testutil.CompletedSwap(t, e.db, owner, student)

	views, err := e.proposals.ListPublicProposals(ctx, repository.ProposalFilter{Search: "grace"})
	require.NoError(t, err)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	assert.Contains(t, ids, open.ID)
	assert.NotContains(t, ids, closed.ID)
	require.NotNil(t, views[0].OwnerReputation)
	assert.Equal(t, int64(1), views[0].OwnerReputation.CompletedSwaps)

	_, err = e.proposals.ListPublicProposals(ctx, repository.ProposalFilter{Modality: "HYBRID"})
	assertCode(t, err, models.CodeValidation)

	views, err = e.proposals.ListPublicProposals(ctx, repository.ProposalFilter{Take: 1000, Skip: -3})
	require.NoError(t, err)
	assert.NotEmpty(t, views)
}

func TestProposalService_StatusTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	other := testutil.CreateUser(t, e.db)
	p := testutil.CreateProposal(t, e.db, owner)

	_, err := e.proposals.UpdateProposalStatus(ctx, other.ID, p.ID, models.ProposalStatusInProgress)
	assertCode(t, err, models.CodeForbidden)

	_, err = e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, "DONE")
	assertCode(t, err, models.CodeValidation)

	updated, err := e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, models.ProposalStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusInProgress, updated.Status)

	updated, err = e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, models.ProposalStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusOpen, updated.Status)

	// An active swap blocks closing.
	app := testutil.CreateApplication(t, e.db, p, other, models.ApplicationStatusAccepted)
	swap := testutil.CreateSwap(t, e.db, p, app, models.SwapStatusActive)
	_, err = e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, models.ProposalStatusClosed)
	assertCode(t, err, models.CodeConflict)

	_, err = e.swaps.UpdateSwapStatus(ctx, owner.ID, swap.ID, models.SwapStatusCompleted)
	require.NoError(t, err)
	updated, err = e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, models.ProposalStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusClosed, updated.Status)

	_, err = e.proposals.UpdateProposalStatus(ctx, owner.ID, p.ID, models.ProposalStatusOpen)
	assertCode(t, err, models.CodeConflict)
}

func TestProposalService_RescindProposal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	other := testutil.CreateUser(t, e.db)

	t.Run("not found", func(t *testing.T) {
		_, err := e.proposals.RescindProposal(ctx, owner.ID, "missing")
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("non-owner", func(t *testing.T) {
		p := testutil.CreateProposal(t, e.db, owner)
		_, err := e.proposals.RescindProposal(ctx, other.ID, p.ID)
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("proposal with swaps", func(t *testing.T) {
		p := testutil.CreateProposal(t, e.db, owner)
		app := testutil.CreateApplication(t, e.db, p, other, models.ApplicationStatusAccepted)
		testutil.CreateSwap(t, e.db, p, app, models.SwapStatusCancelled)

		_, err := e.proposals.RescindProposal(ctx, owner.ID, p.ID)
		assertCode(t, err, models.CodeConflict)
		assert.Contains(t, err.Error(), "Cannot rescind a proposal with swaps")
	})

	t.Run("closes proposal without swaps", func(t *testing.T) {
		p := testutil.CreateProposal(t, e.db, owner)
		testutil.CreateApplication(t, e.db, p, other, models.ApplicationStatusPending)

		got, err := e.proposals.RescindProposal(ctx, owner.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusClosed, got.Status)
	})
}

func TestProposalService_DeleteProposal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	other := testutil.CreateUser(t, e.db)

	p := testutil.CreateProposal(t, e.db, owner)
	testutil.CreateApplication(t, e.db, p, other, models.ApplicationStatusPending)

	assertCode(t, e.proposals.DeleteProposal(ctx, other.ID, p.ID), models.CodeForbidden)
	require.NoError(t, e.proposals.DeleteProposal(ctx, owner.ID, p.ID))

	var apps int64
	require.NoError(t, e.db.Model(&models.Application{}).Where("proposal_id = ?", p.ID).Count(&apps).Error)
	assert.Zero(t, apps)
	assertCode(t, e.proposals.DeleteProposal(ctx, owner.ID, p.ID), models.CodeNotFound)

	withSwap := testutil.CreateProposal(t, e.db, owner)
	app := testutil.CreateApplication(t, e.db, withSwap, other, models.ApplicationStatusAccepted)
	testutil.CreateSwap(t, e.db, withSwap, app, models.SwapStatusActive)
	assertCode(t, e.proposals.DeleteProposal(ctx, owner.ID, withSwap.ID), models.CodeConflict)
}

func TestProposalService_ListMyProposals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, e.db)
	applicant := testutil.CreateUser(t, e.db)

	p := testutil.CreateProposal(t, e.db, owner)
	testutil.CreateProposal(t, e.db, owner, func(p *models.Proposal) { p.Status = models.ProposalStatusClosed })
	testutil.CreateApplication(t, e.db, p, applicant, models.ApplicationStatusPending)

	views, err := e.proposals.ListMyProposals(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	counts := map[string]int64{}
	for _, v := range views {
		counts[v.ID] = v.ApplicationCount
	}
	assert.Equal(t, int64(1), counts[p.ID])
}
