package service

import (
	"context"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/reputation"

	"gorm.io/gorm"
)

// SwapView is a swap with the partner's reputation.
type SwapView struct {
	models.Swap
	PartnerID         string                `json:"partner_id"`
	PartnerReputation reputation.Reputation `json:"partner_reputation"`
}

// Overview is everything the dashboard shows at once.
type Overview struct {
	User                 models.User           `json:"user"`
	Reputation           reputation.Reputation `json:"reputation"`
	Proposals            []ProposalView        `json:"proposals"`
	ReceivedApplications []models.Application  `json:"received_applications"`
	SentApplications     []models.Application  `json:"sent_applications"`
	Swaps                []SwapView            `json:"swaps"`
}

// DashboardService assembles the signed-in user's overview.
type DashboardService struct {
	users      repository.UserRepository
	apps       repository.ApplicationRepository
	swaps      repository.SwapRepository
	proposals  *ProposalService
	reputation *ReputationService
}

// NewDashboardService returns a new DashboardService.
func NewDashboardService(db *gorm.DB, proposals *ProposalService, rep *ReputationService) *DashboardService {
	return &DashboardService{
		users:      repository.NewUserRepository(db),
		apps:       repository.NewApplicationRepository(db),
		swaps:      repository.NewSwapRepository(db),
		proposals:  proposals,
		reputation: rep,
	}
}

// Overview loads the user's proposals, applications in both directions and swaps.
func (s *DashboardService) Overview(ctx context.Context, userID string) (*Overview, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rep, err := s.reputation.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}
	proposals, err := s.proposals.ListMyProposals(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.apps.ListPendingForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	sent, err := s.apps.ListByApplicant(ctx, userID)
	if err != nil {
		return nil, err
	}
	swaps, err := s.swaps.ListForUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	partners := make([]string, len(swaps))
	for i := range swaps {
		partners[i] = swaps[i].Counterpart(userID)
	}
	reps, err := s.reputation.ComputeMany(ctx, partners)
	if err != nil {
		return nil, err
	}
	views := make([]SwapView, len(swaps))
	for i, sw := range swaps {
		views[i] = SwapView{Swap: sw, PartnerID: partners[i], PartnerReputation: reps[partners[i]]}
	}

	return &Overview{
		User:                 *user,
		Reputation:           rep,
		Proposals:            proposals,
		ReceivedApplications: received,
		SentApplications:     sent,
		Swaps:                views,
	}, nil
}
