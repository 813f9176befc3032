package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/eligibility"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
)

func newTestEligibilityService(f *marketplaceFixture) EligibilityService {
	svc := NewEligibilityService(repository.NewRepositories(f.db), eligibility.NewEvaluator(lot.NewRegistry(f.validate)), testLogger())
	svc.(*eligibilityService).now = func() time.Time { return fixedNow }
	return svc
}

func TestEligibilityServiceInvitedSeller(t *testing.T) {
	f := newMarketplaceFixture(t)
	svc := newTestEligibilityService(f)
	ctx := context.Background()

	resp, err := svc.Evaluate(ctx, f.opportunity.ID, actorOf(f.sellerUser))
	require.NoError(t, err)
	require.True(t, resp.CanView)
	require.True(t, resp.CanRespond)
	require.Empty(t, resp.Reason)

	response := models.OpportunityResponse{OpportunityID: f.opportunity.ID, SellerID: f.seller.ID, Status: models.ResponseStatusSubmitted}
	require.NoError(t, f.db.Create(&response).Error)

	resp, err = svc.Evaluate(ctx, f.opportunity.ID, actorOf(f.sellerUser))
	require.NoError(t, err)
	require.True(t, resp.CanView)
	require.False(t, resp.CanRespond)
	require.Equal(t, eligibility.ReasonResponseLimit, resp.Reason)
}

func TestEligibilityServiceUninvitedSeller(t *testing.T) {
	f := newMarketplaceFixture(t)
	other := models.Seller{Code: "S9", Name: "Seller Nine", ContactEmail: "hello@nine.test", Standings: map[string]interface{}{"90": string(models.StandingSubmitted)}}
	require.NoError(t, f.db.Create(&other).Error)
	user := models.User{Name: "Nine", Email: "bid@nine.test", Role: models.RoleSeller, Active: true, SellerID: &other.ID}
	require.NoError(t, f.db.Create(&user).Error)

	resp, err := newTestEligibilityService(f).Evaluate(context.Background(), f.opportunity.ID, actorOf(user))
	require.NoError(t, err)
	require.False(t, resp.CanView)
	require.False(t, resp.CanRespond)
	require.Equal(t, eligibility.ReasonNotSelected, resp.Reason)
}

func TestEligibilityServiceSellerUserWithoutRecord(t *testing.T) {
	f := newMarketplaceFixture(t)
	user := models.User{Name: "Orphan", Email: "orphan@seller.test", Role: models.RoleSeller, Active: true}
	require.NoError(t, f.db.Create(&user).Error)

	resp, err := newTestEligibilityService(f).Evaluate(context.Background(), f.opportunity.ID, actorOf(user))
	require.NoError(t, err)
	require.False(t, resp.CanView)
	require.Equal(t, eligibility.ReasonSellerInvalid, resp.Reason)
}

func TestEligibilityServiceSellerWithoutStandings(t *testing.T) {
	f := newMarketplaceFixture(t)
	svc := newTestEligibilityService(f)

	payload := f.opportunity.Payload.With(models.FieldOpenTo, string(models.OpenToAll))
	require.NoError(t, f.db.Model(&models.Opportunity{}).Where("id = ?", f.opportunity.ID).Update("payload", payload).Error)

	for i, standings := range []map[string]interface{}{nil, {}} {
		seller := models.Seller{Code: fmt.Sprintf("N%d", i), Name: "New seller", ContactEmail: fmt.Sprintf("new%d@seller.test", i), Standings: standings}
		require.NoError(t, f.db.Create(&seller).Error)
		user := models.User{Name: "New", Email: fmt.Sprintf("bid%d@new.test", i), Role: models.RoleSeller, Active: true, SellerID: &seller.ID}
		require.NoError(t, f.db.Create(&user).Error)

		resp, err := svc.Evaluate(context.Background(), f.opportunity.ID, actorOf(user))
		require.NoError(t, err)
		require.False(t, resp.CanView)
		require.False(t, resp.CanRespond)
		require.Equal(t, eligibility.ReasonSellerInvalid, resp.Reason)
	}
}

func TestEligibilityServiceBuyers(t *testing.T) {
	f := newMarketplaceFixture(t)
	svc := newTestEligibilityService(f)
	ctx := context.Background()

	resp, err := svc.Evaluate(ctx, f.opportunity.ID, actorOf(f.buyer))
	require.NoError(t, err)
	require.True(t, resp.CanView)
	require.False(t, resp.CanRespond)
	require.Equal(t, eligibility.ReasonBuyerCannotRespond, resp.Reason)

	resp, err = svc.Evaluate(ctx, f.opportunity.ID, actorOf(f.outsider))
	require.NoError(t, err)
	require.False(t, resp.CanView)
	require.Equal(t, eligibility.ReasonBuyerNotPermitted, resp.Reason)

	resp, err = svc.Evaluate(ctx, f.opportunity.ID, actorOf(f.admin))
	require.NoError(t, err)
	require.True(t, resp.CanView)
}

func TestEligibilityServiceLookupErrors(t *testing.T) {
	f := newMarketplaceFixture(t)
	svc := newTestEligibilityService(f)

	_, err := svc.Evaluate(context.Background(), 999, actorOf(f.sellerUser))
	require.ErrorIs(t, err, apperror.ErrNotFound)
	require.EqualError(t, err, "opportunity not found")

	_, err = svc.Evaluate(context.Background(), f.opportunity.ID, ActivityActor{ID: 999, Role: models.RoleSeller})
	require.EqualError(t, err, "user not found")
}
