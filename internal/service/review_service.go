package service

import (
	"context"
	"fmt"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"gorm.io/gorm"
)

const defaultReviewLimit = 50

// CreateReviewInput is the body of a review.
type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// ReviewService records ratings left after completed swaps.
type ReviewService struct {
	db         *gorm.DB
	reviews    repository.ReviewRepository
	swaps      repository.SwapRepository
	reputation *ReputationService
	effects    effects
}

// NewReviewService returns a new ReviewService.
func NewReviewService(db *gorm.DB, rep *ReputationService, n Notifiers) *ReviewService {
	return &ReviewService{
		db:         db,
		reviews:    repository.NewReviewRepository(db),
		swaps:      repository.NewSwapRepository(db),
		reputation: rep,
		effects:    newEffects(db, n),
	}
}

// CreateReview lets a participant of a COMPLETED swap review the other party, once.
func (s *ReviewService) CreateReview(ctx context.Context, authorID, swapID string, in CreateReviewInput) (*models.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	swap, err := s.swaps.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.IsParticipant(authorID) {
		return nil, models.NewForbiddenError("You are not part of this swap")
	}
	if swap.Status != models.SwapStatusCompleted {
		return nil, models.NewDomainError("Swap is not completed")
	}
	exists, err := s.reviews.ExistsForAuthor(ctx, swapID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError("You have already reviewed this swap")
	}

	review := &models.Review{
		SwapID:     swapID,
		AuthorID:   authorID,
		ReceiverID: swap.Counterpart(authorID),
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.reputation.Invalidate(ctx, review.ReceiverID)
	author, _ := s.effects.users.GetByID(ctx, authorID)
	s.effects.notify(ctx, review.ReceiverID, models.NotificationReviewReceived,
		fmt.Sprintf("%s left you a %d-star review", displayName(author), review.Rating), "/profile/"+review.ReceiverID)
	return review, nil
}

// ListReviewsForUser returns the reviews a user has received, newest first.
func (s *ReviewService) ListReviewsForUser(ctx context.Context, userID string) ([]models.Review, error) {
	return s.reviews.ListForReceiver(ctx, userID, defaultReviewLimit)
}
