package service

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/cache"
	"skillswap/internal/email"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/reputation"
	"skillswap/internal/validation"

	"gorm.io/gorm"
)

// ApplicantView is an application annotated with the applicant's reputation.
type ApplicantView struct {
	models.Application
	ApplicantReputation reputation.Reputation `json:"applicant_reputation"`
}

// ApplicationService handles applications to proposals and their decisions.
type ApplicationService struct {
	db         *gorm.DB
	apps       repository.ApplicationRepository
	proposals  repository.ProposalRepository
	swaps      *SwapService
	reputation *ReputationService
	cache      *cache.Store
	effects    effects
}

// NewApplicationService returns a new ApplicationService. Acceptance is delegated to swaps.
func NewApplicationService(db *gorm.DB, swaps *SwapService, rep *ReputationService, store *cache.Store, n Notifiers) *ApplicationService {
	return &ApplicationService{
		db:         db,
		apps:       repository.NewApplicationRepository(db),
		proposals:  repository.NewProposalRepository(db),
		swaps:      swaps,
		reputation: rep,
		cache:      store,
		effects:    newEffects(db, n),
	}
}

// CreateApplication submits a PENDING application to an OPEN proposal.
func (s *ApplicationService) CreateApplication(ctx context.Context, applicantID, proposalID, pitch string) (*models.Application, error) {
	pitch = strings.TrimSpace(pitch)
	if err := validation.Var("pitch_message", pitch, "min=10,max=500"); err != nil {
		return nil, err
	}

	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.OwnerID == applicantID {
		return nil, models.NewDomainError("You cannot apply to your own proposal")
	}
	existing, err := s.apps.FindByApplicant(ctx, proposalID, applicantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("You have already applied to this proposal")
	}
	if proposal.Status != models.ProposalStatusOpen {
		return nil, models.NewDomainError("Proposal is not open for applications")
	}

	app := &models.Application{
		ProposalID:   proposalID,
		ApplicantID:  applicantID,
		PitchMessage: pitch,
		Status:       models.ApplicationStatusPending,
	}
	// A concurrent double submit loses on the unique index and surfaces as Conflict.
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("application", string(models.ApplicationStatusPending)).Inc()
	if err := s.cache.Invalidate(ctx, cache.OwnerProposalsKey(proposal.OwnerID)); err != nil {
		observability.LogBestEffortFailure(ctx, "proposal.invalidate", err, nil)
	}

	applicant, _ := s.effects.users.GetByID(ctx, applicantID)
	s.effects.notify(ctx, proposal.OwnerID, models.NotificationApplicationReceived,
		fmt.Sprintf("%s applied to %q", displayName(applicant), proposal.Title), "/dashboard?tab=my-proposals")
	s.effects.mail(ctx, proposal.OwnerID, email.KindApplicationReceived, email.Data{
		ProposalTitle: proposal.Title,
		Pitch:         pitch,
	})
	return app, nil
}

// ListApplicationsForProposal returns the applications of a proposal to its owner.
func (s *ApplicationService) ListApplicationsForProposal(ctx context.Context, requesterID, proposalID string) ([]ApplicantView, error) {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.OwnerID != requesterID {
		return nil, models.NewForbiddenError("Only the proposal owner can view its applications")
	}

	apps, err := s.apps.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(apps))
	for i, a := range apps {
		ids[i] = a.ApplicantID
	}
	reps, err := s.reputation.ComputeMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ApplicantView, len(apps))
	for i, a := range apps {
		views[i] = ApplicantView{Application: a, ApplicantReputation: reps[a.ApplicantID]}
	}
	return views, nil
}

// ListMyApplications returns the applications the user has sent.
func (s *ApplicationService) ListMyApplications(ctx context.Context, applicantID string) ([]models.Application, error) {
	return s.apps.ListByApplicant(ctx, applicantID)
}

// UpdateApplicationStatus accepts or rejects a PENDING application. Accepting also
// starts the swap atomically; the returned swap is nil for rejections.
func (s *ApplicationService) UpdateApplicationStatus(ctx context.Context, requesterID, applicationID string, status models.ApplicationStatus) (*models.Application, *models.Swap, error) {
	switch status {
	case models.ApplicationStatusAccepted:
		swap, err := s.swaps.CreateSwapFromApplication(ctx, requesterID, applicationID)
		if err != nil {
			return nil, nil, err
		}
		app, err := s.apps.GetByID(ctx, applicationID)
		if err != nil {
			return nil, nil, err
		}
		return app, swap, nil
	case models.ApplicationStatusRejected:
		app, err := s.reject(ctx, requesterID, applicationID)
		return app, nil, err
	default:
		return nil, nil, models.NewValidationError("status must be one of: ACCEPTED, REJECTED")
	}
}

func (s *ApplicationService) reject(ctx context.Context, requesterID, applicationID string) (*models.Application, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Proposal == nil || app.Proposal.OwnerID != requesterID {
		return nil, models.NewForbiddenError("Only the proposal owner can decide on applications")
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, models.NewConflictError("Application already processed")
	}

	rows, err := s.apps.TransitionFromPending(ctx, applicationID, models.ApplicationStatusRejected)
	if err != nil {
		return nil, err
	}
	if rows != 1 {
		return nil, models.NewConflictError("Application already processed")
	}
	app.Status = models.ApplicationStatusRejected

	observability.LifecycleTransitions.WithLabelValues("application", string(models.ApplicationStatusRejected)).Inc()
	s.effects.notify(ctx, app.ApplicantID, models.NotificationApplicationRejected,
		fmt.Sprintf("Your application to %q was not accepted", app.Proposal.Title), "/dashboard?tab=my-applications")
	s.effects.mail(ctx, app.ApplicantID, email.KindApplicationRejected, email.Data{ProposalTitle: app.Proposal.Title})
	return app, nil
}
