package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/database"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testPolicy() policy.PolicyContext {
	return policy.PolicyContext{Location: time.UTC, QuestionLeadDays: 2, ClosingHour: 18}
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return p.err
}

type marketplaceFixture struct {
	db          *gorm.DB
	validate    *validator.Validate
	buyer       models.User
	outsider    models.User
	admin       models.User
	assessor    models.User
	sellerUser  models.User
	seller      models.Seller
	category    models.Category
	opportunity models.Opportunity
}

func newMarketplaceFixture(t *testing.T) *marketplaceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	f := &marketplaceFixture{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	f.category = models.Category{Name: "Data science", RequiredCriteria: 2, PriceCeiling: 1000}
	require.NoError(t, db.Create(&f.category).Error)

	f.seller = models.Seller{
		Code:         "S1",
		Name:         "Seller One",
		ContactEmail: "tenders@seller.test",
		Standings:    datatypes.JSONMap{"90": string(models.StandingSubmitted)},
	}
	require.NoError(t, db.Create(&f.seller).Error)

	f.buyer = models.User{Name: "Buyer", Email: "buyer@agency.test", Role: models.RoleBuyer, Active: true}
	f.outsider = models.User{Name: "Other buyer", Email: "other@agency.test", Role: models.RoleBuyer, Active: true}
	f.admin = models.User{Name: "Admin", Email: "admin@marketplace.test", Role: models.RoleAdmin, Active: true}
	f.assessor = models.User{Name: "Assessor", Email: "assessor@marketplace.test", Role: models.RoleAssessor, Active: true}
	f.sellerUser = models.User{Name: "Seller user", Email: "bid@seller.test", Role: models.RoleSeller, Active: true, SellerID: &f.seller.ID}
	for _, user := range []*models.User{&f.buyer, &f.outsider, &f.admin, &f.assessor, &f.sellerUser} {
		require.NoError(t, db.Create(user).Error)
	}

	f.opportunity = models.Opportunity{
		OrganizationID: 1,
		Status:         models.OpportunityStatusLive,
		Lot:            models.LotInviteOnly,
		Users:          []models.User{f.buyer},
		Payload: models.Payload{
			models.FieldTitle:             "A",
			models.FieldSummary:           "Build a service",
			models.FieldClosedAt:          "2024-05-20T18:00:00Z",
			models.FieldQuestionsClosedAt: "2024-05-16T18:00:00Z",
			models.FieldOpenTo:            "selected",
			models.FieldSellerSelector:    "someSellers",
			models.FieldSellers:           map[string]interface{}{"S1": map[string]interface{}{"name": "Seller One"}},
		},
	}
	require.NoError(t, db.Create(&f.opportunity).Error)

	return f
}

func actorOf(user models.User) ActivityActor {
	return ActivityActor{ID: user.ID, Role: user.Role}
}

func (f *marketplaceFixture) activityCount(t *testing.T, action string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ActivityLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}
