package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// EvidenceRepository persists evidence submissions and their assessment outcomes.
type EvidenceRepository interface {
	Create(ctx context.Context, submission *models.EvidenceSubmission) error
	GetByID(ctx context.Context, id uint) (models.EvidenceSubmission, error)
	// CountOpen counts the seller's draft and submitted evidence in the category.
	CountOpen(ctx context.Context, sellerID, categoryID uint) (int64, error)
	// UpdateStatus writes the submission only if it still holds the from
	// status. A lost race surfaces as a state conflict.
	UpdateStatus(ctx context.Context, submission models.EvidenceSubmission, from models.EvidenceStatus) error
	CreateOutcome(ctx context.Context, outcome *models.AssessmentOutcome) error
	GetOutcome(ctx context.Context, evidenceID uint) (models.AssessmentOutcome, error)
}

type evidenceRepository struct {
	db *gorm.DB
}

// NewEvidenceRepository constructs a GORM-backed evidence repository.
func NewEvidenceRepository(db *gorm.DB) EvidenceRepository {
	return &evidenceRepository{db: db}
}

func (r *evidenceRepository) Create(ctx context.Context, submission *models.EvidenceSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *evidenceRepository) GetByID(ctx context.Context, id uint) (models.EvidenceSubmission, error) {
	var submission models.EvidenceSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.EvidenceSubmission{}, err
	}
	return submission, nil
}

func (r *evidenceRepository) CountOpen(ctx context.Context, sellerID, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EvidenceSubmission{}).
		Where("seller_id = ? AND category_id = ?", sellerID, categoryID).
		Where("status IN ?", []models.EvidenceStatus{models.EvidenceStatusDraft, models.EvidenceStatusSubmitted}).
		Count(&count).Error
	return count, err
}

func (r *evidenceRepository) UpdateStatus(ctx context.Context, submission models.EvidenceSubmission, from models.EvidenceStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.EvidenceSubmission{}).
		Where("id = ?", submission.ID).
		Where("status = ?", from).
		Updates(map[string]interface{}{
			"status":       submission.Status,
			"submitted_at": submission.SubmittedAt,
			"updated_at":   submission.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.StateConflict(fmt.Sprintf("not %s", from))
	}
	return nil
}

func (r *evidenceRepository) CreateOutcome(ctx context.Context, outcome *models.AssessmentOutcome) error {
	return r.db.WithContext(ctx).Create(outcome).Error
}

func (r *evidenceRepository) GetOutcome(ctx context.Context, evidenceID uint) (models.AssessmentOutcome, error) {
	var outcome models.AssessmentOutcome
	if err := r.db.WithContext(ctx).Where("evidence_id = ?", evidenceID).First(&outcome).Error; err != nil {
		return models.AssessmentOutcome{}, err
	}
	return outcome, nil
}
