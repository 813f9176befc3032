package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the repositories bound to one database handle.
type Repositories struct {
	Opportunities OpportunityRepository
	Sellers       SellerRepository
	Evidence      EvidenceRepository
	Responses     ResponseRepository
	Users         UserRepository
	Activity      ActivityLogRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Opportunities: NewOpportunityRepository(db),
		Sellers:       NewSellerRepository(db),
		Evidence:      NewEvidenceRepository(db),
		Responses:     NewResponseRepository(db),
		Users:         NewUserRepository(db),
		Activity:      NewActivityLogRepository(db),
	}
}

// UnitOfWork runs a function inside a single database transaction. Returning
// an error from fn rolls back every write made through the supplied repositories.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork constructs a transaction boundary over db.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
