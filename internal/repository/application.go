package repository

import (
	"context"
	"errors"

	"skillswap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	// GetForUpdate loads the application and its proposal, locking the application row
	// where the driver supports it. Call inside a transaction.
	GetForUpdate(ctx context.Context, id string) (*models.Application, error)
	FindByApplicant(ctx context.Context, proposalID, applicantID string) (*models.Application, error)
	ListByProposal(ctx context.Context, proposalID string) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error)
	ListPendingForOwner(ctx context.Context, ownerID string) ([]models.Application, error)
	// TransitionFromPending moves a PENDING application to status and reports how many rows changed.
	TransitionFromPending(ctx context.Context, id string, status models.ApplicationStatus) (int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository returns a new ApplicationRepository implementation.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Omit("Proposal", "Applicant").Create(app).Error; err != nil {
		return translate(ctx, "applications", "Create", err, "Application", app.ID, "You have already applied to this proposal")
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Preload("Proposal").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, translate(ctx, "applications", "GetByID", err, "Application", id, "")
	}
	return &app, nil
}

func (r *applicationRepository) GetForUpdate(ctx context.Context, id string) (*models.Application, error) {
	q := r.db.WithContext(ctx)
	// sqlite has no row locks; its writer lock serializes the transaction instead.
	if q.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var app models.Application
	if err := q.Where("id = ?", id).First(&app).Error; err != nil {
		return nil, translate(ctx, "applications", "GetForUpdate", err, "Application", id, "")
	}

	var proposal models.Proposal
	if err := r.db.WithContext(ctx).Where("id = ?", app.ProposalID).First(&proposal).Error; err != nil {
		return nil, translate(ctx, "proposals", "GetForUpdate", err, "Proposal", app.ProposalID, "")
	}
	app.Proposal = &proposal
	return &app, nil
}

// FindByApplicant returns nil, nil when the user has not applied.
func (r *applicationRepository) FindByApplicant(ctx context.Context, proposalID, applicantID string) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND applicant_id = ?", proposalID, applicantID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(ctx, "applications", "FindByApplicant", err, "Application", proposalID, "")
	}
	return &app, nil
}

func (r *applicationRepository) ListByProposal(ctx context.Context, proposalID string) ([]models.Application, error) {
	var apps []models.Application
	if err := r.db.WithContext(ctx).Preload("Applicant").
		Where("proposal_id = ?", proposalID).
		Order("created_at DESC, id ASC").
		Find(&apps).Error; err != nil {
		return nil, translate(ctx, "applications", "ListByProposal", err, "Application", proposalID, "")
	}
	return apps, nil
}

func (r *applicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	var apps []models.Application
	if err := r.db.WithContext(ctx).Preload("Proposal.Owner").
		Where("applicant_id = ?", applicantID).
		Order("created_at DESC, id ASC").
		Find(&apps).Error; err != nil {
		return nil, translate(ctx, "applications", "ListByApplicant", err, "Application", applicantID, "")
	}
	return apps, nil
}

func (r *applicationRepository) ListPendingForOwner(ctx context.Context, ownerID string) ([]models.Application, error) {
	var apps []models.Application
	if err := r.db.WithContext(ctx).Preload("Applicant").Preload("Proposal").
		Joins("JOIN proposals ON proposals.id = applications.proposal_id").
		Where("proposals.owner_id = ? AND applications.status = ?", ownerID, models.ApplicationStatusPending).
		Order("applications.created_at DESC, applications.id ASC").
		Find(&apps).Error; err != nil {
		return nil, translate(ctx, "applications", "ListPendingForOwner", err, "Application", ownerID, "")
	}
	return apps, nil
}

func (r *applicationRepository) TransitionFromPending(ctx context.Context, id string, status models.ApplicationStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationStatusPending).
		Update("status", status)
	if res.Error != nil {
		return 0, translate(ctx, "applications", "TransitionFromPending", res.Error, "Application", id, "")
	}
	return res.RowsAffected, nil
}
