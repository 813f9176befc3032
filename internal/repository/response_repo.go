package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// ResponseRepository reads the response counters eligibility depends on.
type ResponseRepository interface {
	// CountActive counts the seller's draft and submitted responses to the opportunity.
	CountActive(ctx context.Context, opportunityID, sellerID uint) (int, error)
	Create(ctx context.Context, response *models.OpportunityResponse) error
}

type responseRepository struct {
	db *gorm.DB
}

// NewResponseRepository constructs a GORM-backed response repository.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) CountActive(ctx context.Context, opportunityID, sellerID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OpportunityResponse{}).
		Where("opportunity_id = ? AND seller_id = ?", opportunityID, sellerID).
		Where("status IN ?", []string{models.ResponseStatusDraft, models.ResponseStatusSubmitted}).
		Count(&count).Error
	return int(count), err
}

func (r *responseRepository) Create(ctx context.Context, response *models.OpportunityResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}
