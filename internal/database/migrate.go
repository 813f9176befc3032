package database

import (
	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Seller{},
		&models.Category{},
		&models.Opportunity{},
		&models.EditRecord{},
		&models.OpportunityResponse{},
		&models.EvidenceSubmission{},
		&models.AssessmentOutcome{},
		&models.ActivityLog{},
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
