package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// OpportunityRepository persists opportunities and their edit audit trail.
type OpportunityRepository interface {
	GetByID(ctx context.Context, id uint) (models.Opportunity, error)
	// GetForUpdate loads the opportunity and, where the database supports it,
	// holds a row lock until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (models.Opportunity, error)
	Create(ctx context.Context, opportunity *models.Opportunity) error
	UpdatePayload(ctx context.Context, id uint, payload models.Payload, updatedAt time.Time) error
	AddEditRecord(ctx context.Context, record *models.EditRecord) error
	ListEditRecords(ctx context.Context, opportunityID uint) ([]models.EditRecord, error)
}

type opportunityRepository struct {
	db *gorm.DB
}

// NewOpportunityRepository constructs a GORM-backed opportunity repository.
func NewOpportunityRepository(db *gorm.DB) OpportunityRepository {
	return &opportunityRepository{db: db}
}

func (r *opportunityRepository) GetByID(ctx context.Context, id uint) (models.Opportunity, error) {
	return r.load(r.db.WithContext(ctx), id)
}

func (r *opportunityRepository) GetForUpdate(ctx context.Context, id uint) (models.Opportunity, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.load(query, id)
}

func (r *opportunityRepository) load(query *gorm.DB, id uint) (models.Opportunity, error) {
	var opportunity models.Opportunity
	err := query.
		Preload("Users").
		Preload("EditRecords", func(db *gorm.DB) *gorm.DB {
			return db.Order("edited_at ASC").Order("id ASC")
		}).
		First(&opportunity, id).Error
	if err != nil {
		return models.Opportunity{}, err
	}
	return opportunity, nil
}

func (r *opportunityRepository) Create(ctx context.Context, opportunity *models.Opportunity) error {
	return r.db.WithContext(ctx).Create(opportunity).Error
}

// UpdatePayload writes the payload only while the opportunity is still live.
func (r *opportunityRepository) UpdatePayload(ctx context.Context, id uint, payload models.Payload, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("id = ?", id).
		Where("status = ?", models.OpportunityStatusLive).
		Updates(map[string]interface{}{
			"payload":    payload,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.StateConflict("opportunity not live")
	}
	return nil
}

func (r *opportunityRepository) AddEditRecord(ctx context.Context, record *models.EditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *opportunityRepository) ListEditRecords(ctx context.Context, opportunityID uint) ([]models.EditRecord, error) {
	var records []models.EditRecord
	if err := r.db.WithContext(ctx).
		Where("opportunity_id = ?", opportunityID).
		Order("edited_at ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
