package service

import (
	"context"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"gorm.io/gorm"
)

const (
	defaultSkillSearchLimit = 10
	maxSkillSearchLimit     = 50
)

// SkillService manages the skills a user shows on their profile and peer endorsements.
type SkillService struct {
	db         *gorm.DB
	skills     repository.SkillRepository
	swaps      repository.SwapRepository
	reputation *ReputationService
}

// NewSkillService returns a new SkillService.
func NewSkillService(db *gorm.DB, rep *ReputationService) *SkillService {
	return &SkillService{
		db:         db,
		skills:     repository.NewSkillRepository(db),
		swaps:      repository.NewSwapRepository(db),
		reputation: rep,
	}
}

func validSkill(name string) error {
	if !validation.ValidSkillName(name) {
		return models.NewValidationError("skill must be 2-50 characters of letters, numbers, spaces or - / + # .")
	}
	return nil
}

// ListMySkills returns all of the user's skills, hidden ones included.
func (s *SkillService) ListMySkills(ctx context.Context, userID string) ([]models.UserSkill, error) {
	return s.skills.ListUserSkills(ctx, userID, true)
}

// AddSkill links a skill to the user as MANUAL. Re-adding a hidden skill shows it again.
func (s *SkillService) AddSkill(ctx context.Context, userID, name string) (*models.UserSkill, error) {
	if err := validSkill(name); err != nil {
		return nil, err
	}
	var link *models.UserSkill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skills := repository.NewSkillRepository(tx)
		resolved, err := skills.Resolve(ctx, []string{name})
		if err != nil {
			return err
		}
		link, err = skills.AddUserSkill(ctx, userID, resolved[0].ID)
		return err
	})
	return link, err
}

func (s *SkillService) ownedLink(ctx context.Context, userID, userSkillID string) (*models.UserSkill, error) {
	link, err := s.skills.GetUserSkill(ctx, userSkillID)
	if err != nil {
		return nil, err
	}
	// Someone else's link is reported as missing.
	if link.UserID != userID {
		return nil, models.NewNotFoundError("Skill", userSkillID)
	}
	return link, nil
}

// RemoveSkill deletes a MANUAL skill. Endorsed skills carry peer history and can only be hidden.
func (s *SkillService) RemoveSkill(ctx context.Context, userID, userSkillID string) error {
	link, err := s.ownedLink(ctx, userID, userSkillID)
	if err != nil {
		return err
	}
	if link.Source == models.SkillSourceEndorsed {
		return models.NewConflictError("Endorsed skills can only be hidden")
	}
	return s.skills.DeleteUserSkill(ctx, userSkillID)
}

// SetSkillVisibility shows or hides one of the user's skills.
func (s *SkillService) SetSkillVisibility(ctx context.Context, userID, userSkillID string, visible bool) (*models.UserSkill, error) {
	link, err := s.ownedLink(ctx, userID, userSkillID)
	if err != nil {
		return nil, err
	}
	if err := s.skills.SetVisibility(ctx, userSkillID, visible); err != nil {
		return nil, err
	}
	link.IsVisible = visible
	return link, nil
}

// EndorseSkill records that endorserID vouches for targetUserID's skill. The two must
// have completed a swap together.
func (s *SkillService) EndorseSkill(ctx context.Context, endorserID, targetUserID, skillName string) (*models.UserSkill, error) {
	if endorserID == targetUserID {
		return nil, models.NewDomainError("You cannot endorse your own skills")
	}
	if err := validSkill(skillName); err != nil {
		return nil, err
	}
	if _, err := repository.NewUserRepository(s.db).GetByID(ctx, targetUserID); err != nil {
		return nil, err
	}
	ok, err := s.swaps.HasCompletedBetween(ctx, endorserID, targetUserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewDomainError("You can only endorse people you have completed a swap with")
	}

	var link *models.UserSkill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skills := repository.NewSkillRepository(tx)
		resolved, err := skills.Resolve(ctx, []string{skillName})
		if err != nil {
			return err
		}
		link, err = skills.Endorse(ctx, targetUserID, resolved[0].ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.reputation.Invalidate(ctx, targetUserID)
	return link, nil
}

// SearchSkills finds registry skills by case-insensitive prefix or substring.
func (s *SkillService) SearchSkills(ctx context.Context, query string, limit int) ([]models.Skill, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Skill{}, nil
	}
	if limit <= 0 {
		limit = defaultSkillSearchLimit
	}
	if limit > maxSkillSearchLimit {
		limit = maxSkillSearchLimit
	}
	return s.skills.Search(ctx, query, limit)
}
