package repository

import (
	"context"
	"errors"
	"strings"

	"skillswap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SkillRepository manages the global skill registry and the user-skill links.
type SkillRepository interface {
	Resolve(ctx context.Context, names []string) ([]models.Skill, error)
	GetByName(ctx context.Context, name string) (*models.Skill, error)
	Search(ctx context.Context, query string, limit int) ([]models.Skill, error)

	GetUserSkill(ctx context.Context, id string) (*models.UserSkill, error)
	ListUserSkills(ctx context.Context, userID string, includeHidden bool) ([]models.UserSkill, error)
	AddUserSkill(ctx context.Context, userID, skillID string) (*models.UserSkill, error)
	DeleteUserSkill(ctx context.Context, id string) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	Endorse(ctx context.Context, userID, skillID string) (*models.UserSkill, error)
}

type skillRepository struct {
	db *gorm.DB
}

// NewSkillRepository returns a new SkillRepository implementation.
func NewSkillRepository(db *gorm.DB) SkillRepository {
	return &skillRepository{db: db}
}

// Resolve maps display names onto registry rows, creating the missing ones. Names that
// normalize to the same key collapse into one skill, and the first spelling seen wins
// the display name. The result keeps input order.
func (r *skillRepository) Resolve(ctx context.Context, names []string) ([]models.Skill, error) {
	seen := make(map[string]bool, len(names))
	out := make([]models.Skill, 0, len(names))

	for _, raw := range names {
		key := models.NormalizeSkillName(raw)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		candidate := models.Skill{Name: models.CleanSkillName(raw), NormalizedName: key}
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&candidate).Error; err != nil {
			return nil, translate(ctx, "skills", "Resolve", err, "Skill", key, "")
		}

		var skill models.Skill
		if err := r.db.WithContext(ctx).Where("normalized_name = ?", key).First(&skill).Error; err != nil {
			return nil, translate(ctx, "skills", "Resolve", err, "Skill", key, "")
		}
		out = append(out, skill)
	}
	return out, nil
}

// GetByName looks the skill up by its normalized key. Returns nil, nil when unknown.
func (r *skillRepository) GetByName(ctx context.Context, name string) (*models.Skill, error) {
	var skill models.Skill
	err := r.db.WithContext(ctx).Where("normalized_name = ?", models.NormalizeSkillName(name)).First(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(ctx, "skills", "GetByName", err, "Skill", name, "")
	}
	return &skill, nil
}

// Search matches anywhere in the name, prefix matches first.
func (r *skillRepository) Search(ctx context.Context, query string, limit int) ([]models.Skill, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	q := readDB(r.db).WithContext(ctx).Model(&models.Skill{})

	// Both sort keys go in one clause: gorm drops an earlier OrderBy expression
	// when a later Order call is merged into it.
	key := escapeLike(models.NormalizeSkillName(query))
	if key != "" {
		q = q.Where("normalized_name LIKE ? ESCAPE '\\'", "%"+key+"%").
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  "CASE WHEN normalized_name LIKE ? ESCAPE '\\' THEN 0 ELSE 1 END, normalized_name ASC",
				Vars: []any{key + "%"},
			}})
	} else {
		q = q.Order("normalized_name ASC")
	}

	var skills []models.Skill
	if err := q.Limit(limit).Find(&skills).Error; err != nil {
		return nil, translate(ctx, "skills", "Search", err, "Skill", query, "")
	}
	return skills, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *skillRepository) GetUserSkill(ctx context.Context, id string) (*models.UserSkill, error) {
	var us models.UserSkill
	if err := r.db.WithContext(ctx).Preload("Skill").Where("id = ?", id).First(&us).Error; err != nil {
		return nil, translate(ctx, "user_skills", "GetUserSkill", err, "Skill", id, "")
	}
	return &us, nil
}

func (r *skillRepository) ListUserSkills(ctx context.Context, userID string, includeHidden bool) ([]models.UserSkill, error) {
	q := r.db.WithContext(ctx).Preload("Skill").Where("user_id = ?", userID)
	if !includeHidden {
		q = q.Where("is_visible = ?", true)
	}
	var skills []models.UserSkill
	if err := q.Order("endorsement_count DESC, created_at ASC").Find(&skills).Error; err != nil {
		return nil, translate(ctx, "user_skills", "ListUserSkills", err, "Skill", userID, "")
	}
	return skills, nil
}

// AddUserSkill links the skill as MANUAL, or makes an existing link visible again.
func (r *skillRepository) AddUserSkill(ctx context.Context, userID, skillID string) (*models.UserSkill, error) {
	us := models.UserSkill{UserID: userID, SkillID: skillID, Source: models.SkillSourceManual, IsVisible: true}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_id"}},
		DoUpdates: clause.Assignments(map[string]any{"is_visible": true}),
	}).Create(&us).Error
	if err != nil {
		return nil, translate(ctx, "user_skills", "AddUserSkill", err, "Skill", skillID, "")
	}
	return r.findLink(ctx, userID, skillID)
}

// Endorse bumps the endorsement count and marks the link ENDORSED, creating it when missing.
func (r *skillRepository) Endorse(ctx context.Context, userID, skillID string) (*models.UserSkill, error) {
	us := models.UserSkill{
		UserID:           userID,
		SkillID:          skillID,
		Source:           models.SkillSourceEndorsed,
		IsVisible:        true,
		EndorsementCount: 1,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "skill_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"endorsement_count": gorm.Expr("user_skills.endorsement_count + 1"),
			"source":            models.SkillSourceEndorsed,
		}),
	}).Create(&us).Error
	if err != nil {
		return nil, translate(ctx, "user_skills", "Endorse", err, "Skill", skillID, "")
	}
	return r.findLink(ctx, userID, skillID)
}

func (r *skillRepository) findLink(ctx context.Context, userID, skillID string) (*models.UserSkill, error) {
	var us models.UserSkill
	if err := r.db.WithContext(ctx).Preload("Skill").
		Where("user_id = ? AND skill_id = ?", userID, skillID).
		First(&us).Error; err != nil {
		return nil, translate(ctx, "user_skills", "findLink", err, "Skill", skillID, "")
	}
	return &us, nil
}

func (r *skillRepository) DeleteUserSkill(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UserSkill{}).Error; err != nil {
		return translate(ctx, "user_skills", "DeleteUserSkill", err, "Skill", id, "")
	}
	return nil
}

func (r *skillRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	res := r.db.WithContext(ctx).Model(&models.UserSkill{}).Where("id = ?", id).Update("is_visible", visible)
	if res.Error != nil {
		return translate(ctx, "user_skills", "SetVisibility", res.Error, "Skill", id, "")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Skill", id)
	}
	return nil
}
