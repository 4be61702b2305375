package repository

import (
	"context"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/observability"

	"gorm.io/gorm"
)

// ProposalFilter narrows the public proposal listing.
type ProposalFilter struct {
	Search   string
	Modality models.Modality
	// WantSkillIDs matches offered skills, HaveSkillIDs matches needed skills.
	WantSkillIDs []string
	HaveSkillIDs []string
	Take         int
	Skip         int
}

// ProposalRepository defines persistence operations for proposals.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Proposal, error)
	ListPublic(ctx context.Context, filter ProposalFilter) ([]models.Proposal, error)
	CountApplications(ctx context.Context, proposalIDs []string) (map[string]int64, error)
	UpdateStatus(ctx context.Context, id string, status models.ProposalStatus) error
	Delete(ctx context.Context, id string) error
}

type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository returns a new ProposalRepository implementation.
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func withSkills(db *gorm.DB) *gorm.DB {
	return db.Preload("OfferedSkills").Preload("NeededSkills")
}

// Create inserts the proposal and its skill links. The skills must already exist.
func (r *proposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	defer observability.TrackQuery("create", "proposals")()

	if err := r.db.WithContext(ctx).
		Omit("Owner", "OfferedSkills.*", "NeededSkills.*").
		Create(proposal).Error; err != nil {
		return translate(ctx, "proposals", "Create", err, "Proposal", proposal.ID, "")
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	if err := withSkills(r.db.WithContext(ctx)).Preload("Owner").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(ctx, "proposals", "GetByID", err, "Proposal", id, "")
	}
	return &p, nil
}

func (r *proposalRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Proposal, error) {
	var proposals []models.Proposal
	if err := withSkills(r.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id ASC").
		Find(&proposals).Error; err != nil {
		return nil, translate(ctx, "proposals", "ListByOwner", err, "Proposal", ownerID, "")
	}
	return proposals, nil
}

// ListPublic returns OPEN proposals matching filter, newest first.
func (r *proposalRepository) ListPublic(ctx context.Context, filter ProposalFilter) ([]models.Proposal, error) {
	defer observability.TrackQuery("list_public", "proposals")()

	db := readDB(r.db).WithContext(ctx)
	q := db.Model(&models.Proposal{}).Where("proposals.status = ?", models.ProposalStatusOpen)

	if filter.Modality != "" {
		q = q.Where("proposals.modality = ?", filter.Modality)
	}

	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		ownerMatch := db.Model(&models.User{}).Select("id").Where("LOWER(name) LIKE ? ESCAPE '\\'", like)
		offeredMatch := db.Table("proposal_offered_skills").
			Select("proposal_offered_skills.proposal_id").
			Joins("JOIN skills ON skills.id = proposal_offered_skills.skill_id").
			Where("skills.normalized_name LIKE ? ESCAPE '\\'", like)
		neededMatch := db.Table("proposal_needed_skills").
			Select("proposal_needed_skills.proposal_id").
			Joins("JOIN skills ON skills.id = proposal_needed_skills.skill_id").
			Where("skills.normalized_name LIKE ? ESCAPE '\\'", like)

		q = q.Where(db.
			Where("LOWER(proposals.title) LIKE ? ESCAPE '\\'", like).
			Or("LOWER(proposals.description) LIKE ? ESCAPE '\\'", like).
			Or("proposals.owner_id IN (?)", ownerMatch).
			Or("proposals.id IN (?)", offeredMatch).
			Or("proposals.id IN (?)", neededMatch))
	}

	if len(filter.WantSkillIDs) > 0 {
		q = q.Where("proposals.id IN (?)", db.Table("proposal_offered_skills").
			Select("proposal_id").Where("skill_id IN ?", filter.WantSkillIDs))
	}
	if len(filter.HaveSkillIDs) > 0 {
		q = q.Where("proposals.id IN (?)", db.Table("proposal_needed_skills").
			Select("proposal_id").Where("skill_id IN ?", filter.HaveSkillIDs))
	}

	var proposals []models.Proposal
	if err := withSkills(q).Preload("Owner").
		Order("proposals.created_at DESC, proposals.id ASC").
		Limit(filter.Take).
		Offset(filter.Skip).
		Find(&proposals).Error; err != nil {
		return nil, translate(ctx, "proposals", "ListPublic", err, "Proposal", nil, "")
	}
	return proposals, nil
}

func (r *proposalRepository) CountApplications(ctx context.Context, proposalIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(proposalIDs))
	if len(proposalIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ProposalID string
		Total      int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Application{}).
		Select("proposal_id, COUNT(*) AS total").
		Where("proposal_id IN ?", proposalIDs).
		Group("proposal_id").
		Scan(&rows).Error; err != nil {
		return nil, translate(ctx, "applications", "CountApplications", err, "Proposal", nil, "")
	}
	for _, row := range rows {
		counts[row.ProposalID] = row.Total
	}
	return counts, nil
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Proposal{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(ctx, "proposals", "UpdateStatus", res.Error, "Proposal", id, "")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Proposal", id)
	}
	return nil
}

// Delete removes the proposal with its applications and skill links.
func (r *proposalRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Select("OfferedSkills", "NeededSkills", "Applications").
		Delete(&models.Proposal{ID: id})
	if res.Error != nil {
		return translate(ctx, "proposals", "Delete", res.Error, "Proposal", id, "Proposal is still referenced")
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Proposal", id)
	}
	return nil
}
