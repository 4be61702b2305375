package service

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/email"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// SwapService creates swaps from accepted applications and moves them to a terminal state.
type SwapService struct {
	db         *gorm.DB
	swaps      repository.SwapRepository
	reputation *ReputationService
	effects    effects
	now        func() time.Time
}

// NewSwapService returns a new SwapService.
func NewSwapService(db *gorm.DB, rep *ReputationService, n Notifiers) *SwapService {
	return &SwapService{
		db:         db,
		swaps:      repository.NewSwapRepository(db),
		reputation: rep,
		effects:    newEffects(db, n),
		now:        time.Now,
	}
}

// CreateSwapFromApplication accepts a PENDING application and starts its swap in one
// transaction. Concurrent callers for the same application produce exactly one swap;
// the others get a Conflict.
func (s *SwapService) CreateSwapFromApplication(ctx context.Context, requesterID, applicationID string) (_ *models.Swap, err error) {
	ctx, span := observability.StartSpan(ctx, "lifecycle.CreateSwapFromApplication",
		attribute.String("application.id", applicationID))
	defer func() { span.End(err) }()

	var (
		swap *models.Swap
		app  *models.Application
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		apps := repository.NewApplicationRepository(tx)
		var err error
		app, err = apps.GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.Proposal.OwnerID != requesterID {
			return models.NewForbiddenError("Only the proposal owner can accept applications")
		}
		switch app.Status {
		case models.ApplicationStatusAccepted:
			return models.NewConflictError("Application already accepted")
		case models.ApplicationStatusRejected:
			return models.NewConflictError("Application already processed")
		}

		rows, err := apps.TransitionFromPending(ctx, applicationID, models.ApplicationStatusAccepted)
		if err != nil {
			return err
		}
		if rows != 1 {
			return models.NewConflictError("Application already processed")
		}
		app.Status = models.ApplicationStatusAccepted

		swap = &models.Swap{
			ProposalID:    app.ProposalID,
			ApplicationID: app.ID,
			TeacherID:     app.Proposal.OwnerID,
			StudentID:     app.ApplicantID,
			Status:        models.SwapStatusActive,
			StartedAt:     s.now().UTC(),
		}
		return repository.NewSwapRepository(tx).Create(ctx, swap)
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("application", string(models.ApplicationStatusAccepted)).Inc()
	observability.LifecycleTransitions.WithLabelValues("swap", string(models.SwapStatusActive)).Inc()
	s.afterAccept(ctx, app, swap)
	return swap, nil
}

func (s *SwapService) afterAccept(ctx context.Context, app *models.Application, swap *models.Swap) {
	title := app.Proposal.Title
	s.effects.notify(ctx, app.ApplicantID, models.NotificationApplicationAccepted,
		fmt.Sprintf("Your application to %q was accepted", title), "/dashboard?tab=my-applications")
	s.effects.mail(ctx, app.ApplicantID, email.KindApplicationAccepted, email.Data{ProposalTitle: title})

	link := "/dashboard?swap=" + swap.ID
	msg := fmt.Sprintf("Your swap for %q has started", title)
	s.effects.notify(ctx, swap.TeacherID, models.NotificationSwapStarted, msg, link)
	s.effects.notify(ctx, swap.StudentID, models.NotificationSwapStarted, msg, link)
}

// GetSwap returns a swap the requester takes part in.
func (s *SwapService) GetSwap(ctx context.Context, requesterID, swapID string) (*models.Swap, error) {
	swap, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.IsParticipant(requesterID) {
		return nil, models.NewForbiddenError("You are not part of this swap")
	}
	return swap, nil
}

// ListMySwaps returns the user's swaps, optionally filtered by status.
func (s *SwapService) ListMySwaps(ctx context.Context, userID string, status models.SwapStatus) ([]models.Swap, error) {
	return s.swaps.ListForUser(ctx, userID, status)
}

// UpdateSwapStatus completes or cancels an ACTIVE swap. Only participants may do so.
func (s *SwapService) UpdateSwapStatus(ctx context.Context, requesterID, swapID string, status models.SwapStatus) (_ *models.Swap, err error) {
	ctx, span := observability.StartSpan(ctx, "lifecycle.UpdateSwapStatus",
		attribute.String("swap.id", swapID), attribute.String("swap.status", string(status)))
	defer func() { span.End(err) }()

	if status != models.SwapStatusCompleted && status != models.SwapStatusCancelled {
		return nil, models.NewValidationError("status must be one of: COMPLETED, CANCELLED")
	}

	var swap *models.Swap
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swaps := repository.NewSwapRepository(tx)
		var err error
		swap, err = swaps.GetByID(ctx, swapID)
		if err != nil {
			return err
		}
		if !swap.IsParticipant(requesterID) {
			return models.NewForbiddenError("You are not part of this swap")
		}
		if swap.Status != models.SwapStatusActive {
			return models.NewConflictError(fmt.Sprintf("Swap is already %s", swap.Status))
		}

		var completedAt *time.Time
		if status == models.SwapStatusCompleted {
			now := s.now().UTC()
			completedAt = &now
		}
		rows, err := swaps.TransitionFromActive(ctx, swapID, status, completedAt)
		if err != nil {
			return err
		}
		if rows != 1 {
			return models.NewConflictError("Swap is no longer active")
		}
		swap.Status = status
		swap.CompletedAt = completedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.LifecycleTransitions.WithLabelValues("swap", string(status)).Inc()
	if status == models.SwapStatusCompleted {
		s.reputation.Invalidate(ctx, swap.TeacherID, swap.StudentID)
	}
	return swap, nil
}
