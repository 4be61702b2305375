package repository

import (
	"context"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ExistsForAuthor(ctx context.Context, swapID, authorID string) (bool, error)
	ListForReceiver(ctx context.Context, receiverID string, limit int) ([]models.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository returns a new ReviewRepository implementation.
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(review).Error; err != nil {
		return translate(ctx, "reviews", "Create", err, "Review", review.ID, "You have already reviewed this swap")
	}
	return nil
}

func (r *reviewRepository) ExistsForAuthor(ctx context.Context, swapID, authorID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("swap_id = ? AND author_id = ?", swapID, authorID).
		Count(&n).Error; err != nil {
		return false, translate(ctx, "reviews", "ExistsForAuthor", err, "Review", swapID, "")
	}
	return n > 0, nil
}

func (r *reviewRepository) ListForReceiver(ctx context.Context, receiverID string, limit int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var reviews []models.Review
	if err := r.db.WithContext(ctx).Preload("Author").
		Where("receiver_id = ?", receiverID).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Find(&reviews).Error; err != nil {
		return nil, translate(ctx, "reviews", "ListForReceiver", err, "Review", receiverID, "")
	}
	return reviews, nil
}
