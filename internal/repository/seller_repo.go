package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// SellerRepository persists sellers and the categories they are assessed in.
type SellerRepository interface {
	GetByID(ctx context.Context, id uint) (models.Seller, error)
	GetByCode(ctx context.Context, code string) (models.Seller, error)
	Create(ctx context.Context, seller *models.Seller) error
	// UpdateProfile writes the seller's standings and pricing profile together.
	UpdateProfile(ctx context.Context, seller models.Seller, updatedAt time.Time) error
	GetCategory(ctx context.Context, id uint) (models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}

type sellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository constructs a GORM-backed seller repository.
func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

func (r *sellerRepository) GetByID(ctx context.Context, id uint) (models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).First(&seller, id).Error; err != nil {
		return models.Seller{}, err
	}
	return seller, nil
}

func (r *sellerRepository) GetByCode(ctx context.Context, code string) (models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&seller).Error; err != nil {
		return models.Seller{}, err
	}
	return seller, nil
}

func (r *sellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *sellerRepository) UpdateProfile(ctx context.Context, seller models.Seller, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", seller.ID).
		Updates(map[string]interface{}{
			"standings":  seller.Standings,
			"pricing":    seller.Pricing,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sellerRepository) GetCategory(ctx context.Context, id uint) (models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return models.Category{}, err
	}
	return category, nil
}

func (r *sellerRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}
