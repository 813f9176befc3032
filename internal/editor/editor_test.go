package editor

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/lot"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
)

const ownerID uint = 7

func newTestEditor() *Editor {
	return New(lot.NewRegistry(validator.New(validator.WithRequiredStructEnabled())), policy.NewBusinessCalendar())
}

func testPolicy() policy.PolicyContext {
	return policy.PolicyContext{
		Now:              time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Location:         time.UTC,
		QuestionLeadDays: 2,
		ClosingHour:      18,
	}
}

func liveOpportunity(lotType models.LotType) *models.Opportunity {
	return &models.Opportunity{
		ID:     42,
		Status: models.OpportunityStatusLive,
		Lot:    lotType,
		Users:  []models.User{{ID: ownerID}},
		Payload: models.Payload{
			models.FieldTitle:             "A",
			models.FieldSummary:           "Build a service",
			models.FieldClosedAt:          "2024-05-20T18:00:00Z",
			models.FieldQuestionsClosedAt: "2024-05-16T18:00:00Z",
			models.FieldOpenTo:            "selected",
			models.FieldSellerSelector:    "oneSeller",
			models.FieldSellers:           map[string]any{"S1": map[string]any{"name": "Seller One"}},
		},
	}
}

func strPtr(v string) *string { return &v }

func TestApplyTitleOnlyEdit(t *testing.T) {
	editor := newTestEditor()
	original := liveOpportunity(models.LotInviteOnly)

	result, err := editor.Apply(original, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)

	require.Equal(t, changeset.ChangeSet{models.FieldTitle: {Old: "A", New: "B"}}, result.Changes)
	require.NotNil(t, result.Record)
	require.Equal(t, ownerID, result.Record.ActorID)
	require.Equal(t, "A", result.Record.Snapshot.String(models.FieldTitle))
	require.Equal(t, "B", result.Opportunity.Payload.String(models.FieldTitle))
	require.Len(t, result.Opportunity.EditRecords, 1)

	require.Equal(t, "A", original.Payload.String(models.FieldTitle), "input payload must not be mutated")
	require.Empty(t, original.EditRecords)
}

func TestApplyNoOpEditIsNotAudited(t *testing.T) {
	editor := newTestEditor()
	original := liveOpportunity(models.LotInviteOnly)

	result, err := editor.Apply(original, ownerID, Request{
		Title:    strPtr("A"),
		Summary:  strPtr("  Build a service "),
		ClosedAt: strPtr("2024-05-20T18:00:00Z"),
		Sellers:  models.InvitedSellers{"S1": {Name: "Renamed"}},
	}, testPolicy())
	require.NoError(t, err)
	require.True(t, result.Changes.Empty())
	require.Nil(t, result.Record)
	require.Empty(t, result.Opportunity.EditRecords)

	first, err := editor.Apply(original, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)
	second, err := editor.Apply(&first.Opportunity, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)
	require.True(t, second.Changes.Empty())
	require.Len(t, second.Opportunity.EditRecords, 1)

	legacy := liveOpportunity(models.LotInviteOnly)
	legacy.Payload = legacy.Payload.With("budgetRange", "100k")

	unchanged, err := editor.Apply(legacy, ownerID, Request{Title: strPtr("A")}, testPolicy())
	require.NoError(t, err)
	require.True(t, unchanged.Changes.Empty())
	require.Nil(t, unchanged.Record)
	require.Equal(t, "100k", unchanged.Opportunity.Payload.String("budgetRange"))

	edited, err := editor.Apply(legacy, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)
	require.Equal(t, changeset.Change{Old: "A", New: "B"}, edited.Changes[models.FieldTitle])
	require.True(t, edited.Changes.Has("budgetRange"))
	require.False(t, edited.Opportunity.Payload.Has("budgetRange"))
	require.Equal(t, "100k", edited.Record.Snapshot.String("budgetRange"))
}

func TestApplyPreconditions(t *testing.T) {
	editor := newTestEditor()

	_, err := editor.Apply(nil, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrNotFound)

	closed := liveOpportunity(models.LotInviteOnly)
	closed.Status = models.OpportunityStatusClosed
	_, err = editor.Apply(closed, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrStateConflict)

	_, err = editor.Apply(liveOpportunity(models.LotInviteOnly), 99, Request{Title: strPtr("B")}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestApplyClosingDate(t *testing.T) {
	editor := newTestEditor()

	_, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{ClosedAt: strPtr("2024-04-30")}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Equal(t, []string{"closing date must be in the future"}, apperror.DetailsOf(err))

	_, err = editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{ClosedAt: strPtr("soon")}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrValidation)

	result, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{ClosedAt: strPtr("2024-05-24")}, testPolicy())
	require.NoError(t, err)
	require.Equal(t, []string{models.FieldClosedAt, models.FieldQuestionsClosedAt}, result.Changes.Fields())
	require.Equal(t, "2024-05-24T18:00:00Z", result.Opportunity.Payload.String(models.FieldClosedAt))
	require.Equal(t, "2024-05-22T18:00:00Z", result.Opportunity.Payload.String(models.FieldQuestionsClosedAt))
}

func TestApplyMergesSellersAdditively(t *testing.T) {
	editor := newTestEditor()

	result, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{
		Sellers: models.InvitedSellers{"S2": {Name: "Seller Two"}},
	}, testPolicy())
	require.NoError(t, err)

	sellers := result.Opportunity.Payload.Sellers()
	require.Equal(t, []string{"S1", "S2"}, sellers.Codes())
	require.Equal(t, "Seller One", sellers["S1"].Name)
	require.Equal(t, models.SellerSelectorSome, result.Opportunity.Payload.SellerSelector())
	require.Equal(t, []string{models.FieldSellerSelector, models.FieldSellers}, result.Changes.Fields())
}

func TestApplyDocumentsRequireFlag(t *testing.T) {
	editor := newTestEditor()
	attachments := []string{"brief.pdf"}

	result, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{Attachments: &attachments}, testPolicy())
	require.NoError(t, err)
	require.True(t, result.Changes.Empty())

	result, err = editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{
		DocumentsEdited: true,
		Attachments:     &attachments,
	}, testPolicy())
	require.NoError(t, err)
	require.Equal(t, []string{models.FieldAttachments}, result.Changes.Fields())
	require.Equal(t, attachments, result.Opportunity.Payload.Strings(models.FieldAttachments))
}

func TestApplyStripsFieldsOutsideAllowList(t *testing.T) {
	editor := newTestEditor()
	opportunity := liveOpportunity(models.LotOpenMarket)
	opportunity.Payload["budgetRange"] = "100k"

	result, err := editor.Apply(opportunity, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)
	require.False(t, result.Opportunity.Payload.Has("budgetRange"))
	require.False(t, result.Opportunity.Payload.Has(models.FieldSellers))
	require.True(t, result.Changes.Has("budgetRange"))
	require.Equal(t, "100k", result.Record.Snapshot.String("budgetRange"))
}

func TestApplyRevalidatesOnlyDirtyFields(t *testing.T) {
	editor := newTestEditor()
	opportunity := liveOpportunity(models.LotInviteOnly)
	opportunity.Payload[models.FieldSummary] = strings.Repeat("word ", 600)

	_, err := editor.Apply(opportunity, ownerID, Request{Title: strPtr("B")}, testPolicy())
	require.NoError(t, err)

	_, err = editor.Apply(opportunity, ownerID, Request{
		Title:   strPtr(""),
		Summary: strPtr(strings.Repeat("word ", 601)),
	}, testPolicy())
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.Equal(t, []string{"title is required", "summary must be 500 words or fewer"}, apperror.DetailsOf(err))
}

func TestApplySanitizesText(t *testing.T) {
	editor := newTestEditor()

	result, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{
		Title: strPtr("<b>Data</b> & analytics<script>alert(1)</script>"),
	}, testPolicy())
	require.NoError(t, err)
	require.Equal(t, "Data & analytics", result.Opportunity.Payload.String(models.FieldTitle))
}

func TestApplyHistoryReplaysEveryEdit(t *testing.T) {
	editor := newTestEditor()
	pc := testPolicy()

	first, err := editor.Apply(liveOpportunity(models.LotInviteOnly), ownerID, Request{Title: strPtr("B")}, pc)
	require.NoError(t, err)
	second, err := editor.Apply(&first.Opportunity, ownerID, Request{Summary: strPtr("Build two services")}, pc.WithNow(pc.Now.Add(time.Hour)))
	require.NoError(t, err)
	third, err := editor.Apply(&second.Opportunity, ownerID, Request{Title: strPtr("C")}, pc.WithNow(pc.Now.Add(2*time.Hour)))
	require.NoError(t, err)

	history := changeset.History(third.Opportunity.EditRecords, third.Opportunity.Payload)
	require.Len(t, history, 3)
	require.Equal(t, first.Changes, history[0].Changes)
	require.Equal(t, second.Changes, history[1].Changes)
	require.Equal(t, third.Changes, history[2].Changes)
}
