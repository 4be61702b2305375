package service

import (
	"context"
	"strings"

	"skillswap/internal/cache"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/reputation"
	"skillswap/internal/validation"

	"gorm.io/gorm"
)

const (
	defaultProposalTake = 20
	maxProposalTake     = 100
)

// CreateProposalInput is the body of a new proposal.
type CreateProposalInput struct {
	Title         string   `json:"title" validate:"required,min=5,max=100"`
	Description   string   `json:"description" validate:"required,min=20,max=1000"`
	Modality      string   `json:"modality" validate:"required,oneof=REMOTE IN_PERSON"`
	OfferedSkills []string `json:"offered_skills" validate:"min=1,max=20,dive,skillname"`
	NeededSkills  []string `json:"needed_skills" validate:"min=1,max=20,dive,skillname"`
}

// ProposalView is a proposal annotated for display.
type ProposalView struct {
	models.Proposal
	OwnerReputation  *reputation.Reputation `json:"owner_reputation,omitempty"`
	ApplicationCount int64                  `json:"application_count"`
}

// ProposalService implements the proposal lifecycle.
type ProposalService struct {
	db         *gorm.DB
	proposals  repository.ProposalRepository
	reputation *ReputationService
	cache      *cache.Store
}

// NewProposalService returns a new ProposalService.
func NewProposalService(db *gorm.DB, rep *ReputationService, store *cache.Store) *ProposalService {
	return &ProposalService{
		db:         db,
		proposals:  repository.NewProposalRepository(db),
		reputation: rep,
		cache:      store,
	}
}

// CreateProposal validates the input, resolves skill names and stores an OPEN proposal.
func (s *ProposalService) CreateProposal(ctx context.Context, ownerID string, in CreateProposalInput) (*models.Proposal, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Modality = strings.ToUpper(strings.TrimSpace(in.Modality))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	proposal := &models.Proposal{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Modality:    models.Modality(in.Modality),
		Status:      models.ProposalStatusOpen,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skills := repository.NewSkillRepository(tx)
		offered, err := skills.Resolve(ctx, in.OfferedSkills)
		if err != nil {
			return err
		}
		needed, err := skills.Resolve(ctx, in.NeededSkills)
		if err != nil {
			return err
		}
		proposal.OfferedSkills = offered
		proposal.NeededSkills = needed
		return repository.NewProposalRepository(tx).Create(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("proposal", string(models.ProposalStatusOpen)).Inc()
	s.invalidateOwner(ctx, ownerID)
	return proposal, nil
}

// GetProposal returns a proposal with its skills, owner and the owner's reputation.
func (s *ProposalService) GetProposal(ctx context.Context, proposalID string) (*ProposalView, error) {
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	rep, err := s.reputation.Compute(ctx, p.OwnerID)
	if err != nil {
		return nil, err
	}
	counts, err := s.proposals.CountApplications(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	return &ProposalView{Proposal: *p, OwnerReputation: &rep, ApplicationCount: counts[p.ID]}, nil
}

// ListMyProposals returns all of the owner's proposals, newest first, with application counts.
func (s *ProposalService) ListMyProposals(ctx context.Context, ownerID string) ([]ProposalView, error) {
	var views []ProposalView
	_, err := s.cache.CacheAside(ctx, cache.OwnerProposalsKey(ownerID), &views, cache.OwnerProposalsTTL, func() error {
		proposals, err := s.proposals.ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		counts, err := s.proposals.CountApplications(ctx, proposalIDs(proposals))
		if err != nil {
			return err
		}
		views = make([]ProposalView, 0, len(proposals))
		for _, p := range proposals {
			views = append(views, ProposalView{Proposal: p, ApplicationCount: counts[p.ID]})
		}
		return nil
	})
	return views, err
}

// ListPublicProposals lists OPEN proposals matching filter, each with its owner's reputation.
func (s *ProposalService) ListPublicProposals(ctx context.Context, filter repository.ProposalFilter) ([]ProposalView, error) {
	if filter.Take <= 0 {
		filter.Take = defaultProposalTake
	}
	if filter.Take > maxProposalTake {
		filter.Take = maxProposalTake
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Modality != "" && !filter.Modality.Valid() {
		return nil, models.NewValidationError("modality must be one of: REMOTE, IN_PERSON")
	}

	proposals, err := s.proposals.ListPublic(ctx, filter)
	if err != nil {
		return nil, err
	}

	owners := make([]string, 0, len(proposals))
	for _, p := range proposals {
		owners = append(owners, p.OwnerID)
	}
	reps, err := s.reputation.ComputeMany(ctx, owners)
	if err != nil {
		return nil, err
	}
	counts, err := s.proposals.CountApplications(ctx, proposalIDs(proposals))
	if err != nil {
		return nil, err
	}

	views := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		rep := reps[p.OwnerID]
		views = append(views, ProposalView{Proposal: p, OwnerReputation: &rep, ApplicationCount: counts[p.ID]})
	}
	return views, nil
}

// UpdateProposalStatus lets the owner move a proposal between OPEN and IN_PROGRESS, or
// close it once no swap is active. CLOSED is terminal.
func (s *ProposalService) UpdateProposalStatus(ctx context.Context, requesterID, proposalID string, status models.ProposalStatus) (*models.Proposal, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status must be one of: OPEN, IN_PROGRESS, CLOSED")
	}

	var updated *models.Proposal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposals := repository.NewProposalRepository(tx)
		p, err := proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.OwnerID != requesterID {
			return models.NewForbiddenError("Only the proposal owner can change its status")
		}
		if p.Status == models.ProposalStatusClosed {
			return models.NewConflictError("Proposal is closed")
		}
		if p.Status == status {
			updated = p
			return nil
		}
		if status == models.ProposalStatusClosed {
			active, err := repository.NewSwapRepository(tx).CountByProposal(ctx, proposalID, models.SwapStatusActive)
			if err != nil {
				return err
			}
			if active > 0 {
				return models.NewConflictError("Cannot close a proposal with active swaps")
			}
		}
		if err := proposals.UpdateStatus(ctx, proposalID, status); err != nil {
			return err
		}
		p.Status = status
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("proposal", string(status)).Inc()
	s.invalidateOwner(ctx, requesterID)
	return updated, nil
}

// RescindProposal closes a proposal that never produced a swap.
func (s *ProposalService) RescindProposal(ctx context.Context, requesterID, proposalID string) (*models.Proposal, error) {
	var rescinded *models.Proposal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposals := repository.NewProposalRepository(tx)
		p, err := proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.OwnerID != requesterID {
			return models.NewForbiddenError("Only the proposal owner can rescind it")
		}
		swaps, err := repository.NewSwapRepository(tx).CountByProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if swaps > 0 {
			return models.NewConflictError("Cannot rescind a proposal with swaps")
		}
		if err := proposals.UpdateStatus(ctx, proposalID, models.ProposalStatusClosed); err != nil {
			return err
		}
		p.Status = models.ProposalStatusClosed
		rescinded = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("proposal", string(models.ProposalStatusClosed)).Inc()
	s.invalidateOwner(ctx, requesterID)
	return rescinded, nil
}

// DeleteProposal removes a proposal with its applications and skill links. Proposals
// referenced by swaps cannot be deleted.
func (s *ProposalService) DeleteProposal(ctx context.Context, requesterID, proposalID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposals := repository.NewProposalRepository(tx)
		p, err := proposals.GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		if p.OwnerID != requesterID {
			return models.NewForbiddenError("Only the proposal owner can delete it")
		}
		swaps, err := repository.NewSwapRepository(tx).CountByProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if swaps > 0 {
			return models.NewConflictError("Cannot delete a proposal with swaps")
		}
		return proposals.Delete(ctx, proposalID)
	})
	if err != nil {
		return err
	}
	s.invalidateOwner(ctx, requesterID)
	return nil
}

func (s *ProposalService) invalidateOwner(ctx context.Context, ownerID string) {
	if err := s.cache.Invalidate(ctx, cache.OwnerProposalsKey(ownerID)); err != nil {
		observability.LogBestEffortFailure(ctx, "proposal.invalidate", err, map[string]any{"owner_id": ownerID})
	}
}

func proposalIDs(proposals []models.Proposal) []string {
	ids := make([]string, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ID
	}
	return ids
}
