package repository

import (
	"context"
	"time"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// SwapRepository defines persistence operations for swaps.
type SwapRepository interface {
	Create(ctx context.Context, swap *models.Swap) error
	GetByID(ctx context.Context, id string) (*models.Swap, error)
	ListForUser(ctx context.Context, userID string, status models.SwapStatus) ([]models.Swap, error)
	CountByProposal(ctx context.Context, proposalID string, statuses ...models.SwapStatus) (int64, error)
	// TransitionFromActive moves an ACTIVE swap to status and reports how many rows changed.
	TransitionFromActive(ctx context.Context, id string, status models.SwapStatus, completedAt *time.Time) (int64, error)
	HasCompletedBetween(ctx context.Context, userA, userB string) (bool, error)
}

type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository returns a new SwapRepository implementation.
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, swap *models.Swap) error {
	if err := r.db.WithContext(ctx).Omit("Proposal", "Teacher", "Student").Create(swap).Error; err != nil {
		return translate(ctx, "swaps", "Create", err, "Swap", swap.ID, "A swap already exists for this application")
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id string) (*models.Swap, error) {
	var swap models.Swap
	if err := r.db.WithContext(ctx).
		Preload("Proposal").Preload("Teacher").Preload("Student").
		Where("id = ?", id).
		First(&swap).Error; err != nil {
		return nil, translate(ctx, "swaps", "GetByID", err, "Swap", id, "")
	}
	return &swap, nil
}

// ListForUser returns swaps where the user is either party. An empty status lists all.
func (r *swapRepository) ListForUser(ctx context.Context, userID string, status models.SwapStatus) ([]models.Swap, error) {
	q := r.db.WithContext(ctx).
		Preload("Proposal").Preload("Teacher").Preload("Student").
		Where("(teacher_id = ? OR student_id = ?)", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var swaps []models.Swap
	if err := q.Order("started_at DESC, id ASC").Find(&swaps).Error; err != nil {
		return nil, translate(ctx, "swaps", "ListForUser", err, "Swap", userID, "")
	}
	return swaps, nil
}

func (r *swapRepository) CountByProposal(ctx context.Context, proposalID string, statuses ...models.SwapStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Swap{}).Where("proposal_id = ?", proposalID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, translate(ctx, "swaps", "CountByProposal", err, "Swap", proposalID, "")
	}
	return n, nil
}

func (r *swapRepository) TransitionFromActive(ctx context.Context, id string, status models.SwapStatus, completedAt *time.Time) (int64, error) {
	updates := map[string]any{"status": status}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).Model(&models.Swap{}).
		Where("id = ? AND status = ?", id, models.SwapStatusActive).
		Updates(updates)
	if res.Error != nil {
		return 0, translate(ctx, "swaps", "TransitionFromActive", res.Error, "Swap", id, "")
	}
	return res.RowsAffected, nil
}

func (r *swapRepository) HasCompletedBetween(ctx context.Context, userA, userB string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Swap{}).
		Where("status = ?", models.SwapStatusCompleted).
		Where("((teacher_id = ? AND student_id = ?) OR (teacher_id = ? AND student_id = ?))", userA, userB, userB, userA).
		Count(&n).Error
	if err != nil {
		return false, translate(ctx, "swaps", "HasCompletedBetween", err, "Swap", nil, "")
	}
	return n > 0, nil
}
