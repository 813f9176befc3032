package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/changeset"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/editor"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/observability"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
)

// OpportunityService applies audited edits to live opportunities.
type OpportunityService interface {
	ApplyEdit(ctx context.Context, opportunityID uint, payload dto.OpportunityEditRequest, actor ActivityActor) (dto.OpportunityEditResponse, error)
	History(ctx context.Context, opportunityID uint, actor ActivityActor) ([]dto.EditHistoryEntryResponse, error)
}

type opportunityService struct {
	uow           repository.UnitOfWork
	opportunities repository.OpportunityRepository
	editor        *editor.Editor
	policy        policy.PolicyContext
	validator     *validator.Validate
	events        emitter
	logger        zerolog.Logger
	now           func() time.Time
}

// NewOpportunityService constructs the opportunity edit service.
func NewOpportunityService(uow repository.UnitOfWork, opportunities repository.OpportunityRepository, edits *editor.Editor, publisher events.Publisher, policyCtx policy.PolicyContext, validator *validator.Validate, logger zerolog.Logger) OpportunityService {
	serviceLogger := logger.With().Str("component", "opportunity_service").Logger()
	return &opportunityService{
		uow:           uow,
		opportunities: opportunities,
		editor:        edits,
		policy:        policyCtx,
		validator:     validator,
		events:        emitter{publisher: publisher, logger: serviceLogger},
		logger:        serviceLogger,
		now:           time.Now,
	}
}

func (s *opportunityService) ApplyEdit(ctx context.Context, opportunityID uint, payload dto.OpportunityEditRequest, actor ActivityActor) (dto.OpportunityEditResponse, error) {
	tracer := otel.Tracer("github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service/opportunity")
	ctx, span := tracer.Start(ctx, "opportunity.apply_edit")
	span.SetAttributes(
		attribute.Int64("opportunity.id", int64(opportunityID)),
		attribute.Int64("opportunity.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		err = apperror.FromValidator(err)
		failSpan(span, err)
		observability.OpportunityEdits().WithLabelValues("failed").Inc()
		return dto.OpportunityEditResponse{}, err
	}

	pc := s.policy.WithNow(s.now())
	var result editor.Result
	err := s.uow.Do(ctx, func(repos repository.Repositories) error {
		opportunity, err := repos.Opportunities.GetForUpdate(ctx, opportunityID)
		if err != nil {
			return lookupError(err, "opportunity")
		}

		result, err = s.editor.Apply(&opportunity, actor.ID, toEditRequest(payload), pc)
		if err != nil {
			return err
		}
		if result.Record == nil {
			return nil
		}

		if err := repos.Opportunities.UpdatePayload(ctx, opportunityID, result.Opportunity.Payload, pc.Now); err != nil {
			return err
		}
		record := *result.Record
		if err := repos.Opportunities.AddEditRecord(ctx, &record); err != nil {
			return err
		}
		result.Record = &record

		entry, err := buildActivityLog(ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     models.ActionOpportunityEdited,
			EntityType: models.EntityOpportunity,
			EntityID:   &opportunityID,
			Metadata: map[string]interface{}{
				"edit_record_id": record.ID,
				"fields":         result.Changes.Fields(),
			},
		})
		if err != nil {
			return err
		}
		return repos.Activity.Create(ctx, &entry)
	})
	if err != nil {
		failSpan(span, err)
		observability.OpportunityEdits().WithLabelValues("failed").Inc()
		return dto.OpportunityEditResponse{}, err
	}

	response := dto.OpportunityEditResponse{
		Opportunity: dto.NewOpportunityResponse(result.Opportunity),
		Changes:     result.Changes,
		Audited:     result.Record != nil,
	}
	if result.Record == nil {
		span.SetAttributes(attribute.Bool("opportunity.noop", true))
		observability.OpportunityEdits().WithLabelValues("noop").Inc()
		return response, nil
	}

	observability.OpportunityEdits().WithLabelValues("applied").Inc()
	s.logger.Info().
		Uint("opportunity_id", opportunityID).
		Uint("actor_id", actor.ID).
		Strs("fields", result.Changes.Fields()).
		Msg("opportunity edited")

	s.events.emit(ctx, events.OpportunityEdited(opportunityID, result.Changes, pc.Now))

	return response, nil
}

func (s *opportunityService) History(ctx context.Context, opportunityID uint, actor ActivityActor) ([]dto.EditHistoryEntryResponse, error) {
	tracer := otel.Tracer("github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service/opportunity")
	ctx, span := tracer.Start(ctx, "opportunity.history")
	span.SetAttributes(attribute.Int64("opportunity.id", int64(opportunityID)))
	defer span.End()

	opportunity, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		err = lookupError(err, "opportunity")
		failSpan(span, err)
		return nil, err
	}

	if normalizeRole(actor.Role) != models.RoleAdmin && !opportunity.HasUser(actor.ID) {
		err := apperror.Unauthorized("actor cannot view this opportunity's history")
		failSpan(span, err)
		return nil, err
	}

	return dto.NewEditHistoryResponse(changeset.History(opportunity.EditRecords, opportunity.Payload)), nil
}

func toEditRequest(payload dto.OpportunityEditRequest) editor.Request {
	req := editor.Request{
		Title:                payload.Title,
		Summary:              payload.Summary,
		ClosedAt:             payload.ClosedAt,
		DocumentsEdited:      payload.DocumentsEdited,
		Attachments:          payload.Attachments,
		RequirementsDocument: payload.RequirementsDocument,
		ResponseTemplate:     payload.ResponseTemplate,
	}
	if len(payload.Sellers) > 0 {
		req.Sellers = make(models.InvitedSellers, len(payload.Sellers))
		for code, seller := range payload.Sellers {
			req.Sellers[code] = models.InvitedSeller{Name: seller.Name}
		}
	}
	return req
}
