package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/editor"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
)

func newTestOpportunityService(f *marketplaceFixture, publisher events.Publisher) OpportunityService {
	edits := editor.New(lot.NewRegistry(f.validate), policy.NewBusinessCalendar())
	svc := NewOpportunityService(
		repository.NewUnitOfWork(f.db),
		repository.NewOpportunityRepository(f.db),
		edits,
		publisher,
		testPolicy(),
		f.validate,
		testLogger(),
	)
	svc.(*opportunityService).now = func() time.Time { return fixedNow }
	return svc
}

func strPtr(v string) *string { return &v }

func TestOpportunityServiceApplyEditCommitsAndNotifies(t *testing.T) {
	f := newMarketplaceFixture(t)
	publisher := &recordingPublisher{}
	svc := newTestOpportunityService(f, publisher)

	resp, err := svc.ApplyEdit(context.Background(), f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr("B")}, actorOf(f.buyer))
	require.NoError(t, err)
	require.True(t, resp.Audited)
	require.Equal(t, changeset.ChangeSet{models.FieldTitle: {Old: "A", New: "B"}}, resp.Changes)
	require.Equal(t, "B", resp.Opportunity.Payload[models.FieldTitle])

	stored, err := repository.NewOpportunityRepository(f.db).GetByID(context.Background(), f.opportunity.ID)
	require.NoError(t, err)
	require.Equal(t, "B", stored.Payload.String(models.FieldTitle))
	require.Len(t, stored.EditRecords, 1)
	require.Equal(t, "A", stored.EditRecords[0].Snapshot.String(models.FieldTitle))
	require.Equal(t, f.buyer.ID, stored.EditRecords[0].ActorID)

	require.Equal(t, int64(1), f.activityCount(t, models.ActionOpportunityEdited))

	require.Len(t, publisher.events, 1)
	require.Equal(t, events.KindOpportunityEdited, publisher.events[0].Kind)
	require.Equal(t, f.opportunity.ID, publisher.events[0].SubjectID)
	require.Equal(t, []string{models.FieldTitle}, publisher.events[0].Changes.Fields())
}

func TestOpportunityServiceNoopEditIsNotAudited(t *testing.T) {
	f := newMarketplaceFixture(t)
	publisher := &recordingPublisher{}
	svc := newTestOpportunityService(f, publisher)

	resp, err := svc.ApplyEdit(context.Background(), f.opportunity.ID, dto.OpportunityEditRequest{
		Title:   strPtr("A"),
		Summary: strPtr("Build a service"),
	}, actorOf(f.buyer))
	require.NoError(t, err)
	require.False(t, resp.Audited)
	require.True(t, resp.Changes.Empty())

	records, err := repository.NewOpportunityRepository(f.db).ListEditRecords(context.Background(), f.opportunity.ID)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, f.activityCount(t, models.ActionOpportunityEdited))
	require.Empty(t, publisher.events)
}

func TestOpportunityServiceNotificationFailureKeepsEdit(t *testing.T) {
	f := newMarketplaceFixture(t)
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := newTestOpportunityService(f, publisher)

	resp, err := svc.ApplyEdit(context.Background(), f.opportunity.ID, dto.OpportunityEditRequest{
		Sellers: map[string]dto.InvitedSellerRequest{"S2": {Name: "Seller Two"}},
	}, actorOf(f.buyer))
	require.NoError(t, err)
	require.True(t, resp.Audited)
	require.Len(t, publisher.events, 1)

	stored, err := repository.NewOpportunityRepository(f.db).GetByID(context.Background(), f.opportunity.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"S1", "S2"}, stored.Payload.Sellers().Codes())
	require.Len(t, stored.EditRecords, 1)
}

func TestOpportunityServiceApplyEditErrors(t *testing.T) {
	f := newMarketplaceFixture(t)
	publisher := &recordingPublisher{}
	svc := newTestOpportunityService(f, publisher)
	ctx := context.Background()

	_, err := svc.ApplyEdit(ctx, 999, dto.OpportunityEditRequest{Title: strPtr("B")}, actorOf(f.buyer))
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr("B")}, actorOf(f.outsider))
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr(strings.Repeat("x", 1001))}, actorOf(f.buyer))
	require.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr(" ")}, actorOf(f.buyer))
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Equal(t, []string{"title is required"}, apperror.DetailsOf(err))

	require.NoError(t, f.db.Model(&models.Opportunity{}).Where("id = ?", f.opportunity.ID).Update("status", models.OpportunityStatusClosed).Error)
	_, err = svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr("B")}, actorOf(f.buyer))
	require.ErrorIs(t, err, apperror.ErrStateConflict)

	require.Empty(t, publisher.events)
	records, err := repository.NewOpportunityRepository(f.db).ListEditRecords(ctx, f.opportunity.ID)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestOpportunityServiceHistory(t *testing.T) {
	f := newMarketplaceFixture(t)
	svc := newTestOpportunityService(f, events.Discard)
	ctx := context.Background()

	_, err := svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{Title: strPtr("B")}, actorOf(f.buyer))
	require.NoError(t, err)
	_, err = svc.ApplyEdit(ctx, f.opportunity.ID, dto.OpportunityEditRequest{ClosedAt: strPtr("2024-05-24")}, actorOf(f.buyer))
	require.NoError(t, err)

	history, err := svc.History(ctx, f.opportunity.ID, actorOf(f.buyer))
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, []string{models.FieldTitle}, history[0].Changes.Fields())
	require.Equal(t, []string{models.FieldClosedAt, models.FieldQuestionsClosedAt}, history[1].Changes.Fields())
	require.Equal(t, "2024-05-22T18:00:00Z", history[1].Changes[models.FieldQuestionsClosedAt].New)

	_, err = svc.History(ctx, f.opportunity.ID, actorOf(f.outsider))
	require.ErrorIs(t, err, apperror.ErrUnauthorized)

	adminView, err := svc.History(ctx, f.opportunity.ID, actorOf(f.admin))
	require.NoError(t, err)
	require.Len(t, adminView, 2)
}
