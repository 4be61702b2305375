package repository

import (
	"context"

	"skillswap/internal/models"
	"skillswap/internal/reputation"

	"gorm.io/gorm"
)

// ReputationRepository runs the aggregate queries reputation is derived from.
type ReputationRepository interface {
	Stats(ctx context.Context, userID string) (reputation.Stats, error)
	AllStats(ctx context.Context) (map[string]reputation.Stats, error)
}

type reputationRepository struct {
	db *gorm.DB
}

// NewReputationRepository returns a new ReputationRepository implementation.
func NewReputationRepository(db *gorm.DB) ReputationRepository {
	return &reputationRepository{db: db}
}

func (r *reputationRepository) Stats(ctx context.Context, userID string) (reputation.Stats, error) {
	var stats reputation.Stats
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.Swap{}).
		Where("status = ? AND (teacher_id = ? OR student_id = ?)", models.SwapStatusCompleted, userID, userID).
		Count(&stats.CompletedSwaps).Error; err != nil {
		return stats, translate(ctx, "swaps", "Stats", err, "User", userID, "")
	}

	var ratings struct {
		Total int64
		Sum   int64
	}
	if err := db.Model(&models.Review{}).
		Select("COUNT(*) AS total, COALESCE(SUM(rating), 0) AS sum").
		Where("receiver_id = ?", userID).
		Scan(&ratings).Error; err != nil {
		return stats, translate(ctx, "reviews", "Stats", err, "User", userID, "")
	}
	stats.RatingCount = ratings.Total
	stats.RatingSum = ratings.Sum

	if err := db.Model(&models.UserSkill{}).
		Select("COALESCE(SUM(endorsement_count), 0)").
		Where("user_id = ? AND source = ?", userID, models.SkillSourceEndorsed).
		Scan(&stats.TotalEndorsements).Error; err != nil {
		return stats, translate(ctx, "user_skills", "Stats", err, "User", userID, "")
	}

	return stats, nil
}

// AllStats computes the same aggregates for every user that has any activity.
func (r *reputationRepository) AllStats(ctx context.Context) (map[string]reputation.Stats, error) {
	db := readDB(r.db).WithContext(ctx)
	out := make(map[string]reputation.Stats)

	for _, column := range []string{"teacher_id", "student_id"} {
		var swapRows []struct {
			UserID string
			Total  int64
		}
		if err := db.Model(&models.Swap{}).
			Select(column+" AS user_id, COUNT(*) AS total").
			Where("status = ?", models.SwapStatusCompleted).
			Group(column).
			Scan(&swapRows).Error; err != nil {
			return nil, translate(ctx, "swaps", "AllStats", err, "User", nil, "")
		}
		for _, row := range swapRows {
			s := out[row.UserID]
			s.CompletedSwaps += row.Total
			out[row.UserID] = s
		}
	}

	var ratingRows []struct {
		ReceiverID string
		Total      int64
		Sum        int64
	}
	if err := db.Model(&models.Review{}).
		Select("receiver_id, COUNT(*) AS total, COALESCE(SUM(rating), 0) AS sum").
		Group("receiver_id").
		Scan(&ratingRows).Error; err != nil {
		return nil, translate(ctx, "reviews", "AllStats", err, "User", nil, "")
	}
	for _, row := range ratingRows {
		s := out[row.ReceiverID]
		s.RatingCount = row.Total
		s.RatingSum = row.Sum
		out[row.ReceiverID] = s
	}

	var endorsementRows []struct {
		UserID string
		Total  int64
	}
	if err := db.Model(&models.UserSkill{}).
		Select("user_id, COALESCE(SUM(endorsement_count), 0) AS total").
		Where("source = ?", models.SkillSourceEndorsed).
		Group("user_id").
		Scan(&endorsementRows).Error; err != nil {
		return nil, translate(ctx, "user_skills", "AllStats", err, "User", nil, "")
	}
	for _, row := range endorsementRows {
		s := out[row.UserID]
		s.TotalEndorsements = row.Total
		out[row.UserID] = s
	}

	return out, nil
}
