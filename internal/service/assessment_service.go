package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/assessment"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/events"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/observability"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/policy"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
)

// AssessmentService drives evidence submissions from draft to a terminal decision.
type AssessmentService interface {
	CreateDraft(ctx context.Context, payload dto.EvidenceCreateRequest, actor ActivityActor) (dto.AssessmentResponse, error)
	Submit(ctx context.Context, evidenceID uint, actor ActivityActor) (dto.AssessmentResponse, error)
	Approve(ctx context.Context, evidenceID uint, actor ActivityActor) (dto.AssessmentResponse, error)
	Reject(ctx context.Context, evidenceID uint, payload dto.EvidenceRejectRequest, actor ActivityActor) (dto.AssessmentResponse, error)
}

type assessmentService struct {
	uow       repository.UnitOfWork
	users     repository.UserRepository
	validator *validator.Validate
	events    emitter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAssessmentService constructs the assessment workflow service.
func NewAssessmentService(uow repository.UnitOfWork, users repository.UserRepository, publisher events.Publisher, validator *validator.Validate, logger zerolog.Logger) AssessmentService {
	serviceLogger := logger.With().Str("component", "assessment_service").Logger()
	return &assessmentService{
		uow:       uow,
		users:     users,
		validator: validator,
		events:    emitter{publisher: publisher, logger: serviceLogger},
		logger:    serviceLogger,
		now:       time.Now,
	}
}

func (s *assessmentService) startSpan(ctx context.Context, name string, evidenceID uint, actor ActivityActor) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service/assessment")
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.Int64("evidence.id", int64(evidenceID)),
		attribute.Int64("evidence.actor_id", int64(actor.ID)),
	)
	return ctx, span
}

func (s *assessmentService) CreateDraft(ctx context.Context, payload dto.EvidenceCreateRequest, actor ActivityActor) (dto.AssessmentResponse, error) {
	ctx, span := s.startSpan(ctx, "evidence.create_draft", 0, actor)
	defer span.End()

	submission, err := s.createDraft(ctx, payload, actor)
	if err != nil {
		failSpan(span, err)
		observability.EvidenceTransitions().WithLabelValues(string(models.EvidenceStatusDraft), "failed").Inc()
		return dto.AssessmentResponse{}, err
	}

	observability.EvidenceTransitions().WithLabelValues(string(models.EvidenceStatusDraft), "applied").Inc()
	return dto.AssessmentResponse{Evidence: dto.NewEvidenceResponse(submission)}, nil
}

func (s *assessmentService) createDraft(ctx context.Context, payload dto.EvidenceCreateRequest, actor ActivityActor) (models.EvidenceSubmission, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.EvidenceSubmission{}, apperror.FromValidator(err)
	}
	rate, err := policy.ParseRate(payload.ProposedRate)
	if err != nil {
		return models.EvidenceSubmission{}, err
	}

	sellerID, err := s.sellerOf(ctx, actor)
	if err != nil {
		return models.EvidenceSubmission{}, err
	}

	responses := datatypes.JSONMap{}
	for criterion, text := range payload.Responses {
		responses[strings.TrimSpace(criterion)] = strings.TrimSpace(text)
	}

	now := s.now()
	submission := models.EvidenceSubmission{
		SellerID:     sellerID,
		CategoryID:   payload.CategoryID,
		ProposedRate: rate,
		Responses:    responses,
		Status:       models.EvidenceStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.uow.Do(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Sellers.GetCategory(ctx, payload.CategoryID); err != nil {
			return lookupError(err, "category")
		}
		open, err := repos.Evidence.CountOpen(ctx, sellerID, payload.CategoryID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperror.StateConflict("open submission exists for category")
		}
		if err := repos.Evidence.Create(ctx, &submission); err != nil {
			return err
		}
		return s.recordActivity(ctx, repos, actor, models.ActionEvidenceCreated, submission, nil)
	})
	return submission, err
}

func (s *assessmentService) Submit(ctx context.Context, evidenceID uint, actor ActivityActor) (dto.AssessmentResponse, error) {
	ctx, span := s.startSpan(ctx, "evidence.submit", evidenceID, actor)
	defer span.End()

	sellerID, err := s.sellerOf(ctx, actor)
	if err != nil {
		failSpan(span, err)
		return dto.AssessmentResponse{}, err
	}

	var transition assessment.Transition
	err = s.uow.Do(ctx, func(repos repository.Repositories) error {
		submission, seller, category, err := loadEvidence(ctx, repos, evidenceID)
		if err != nil {
			return err
		}
		if submission.SellerID != sellerID {
			return apperror.Unauthorized("actor cannot submit this evidence")
		}

		transition, err = assessment.Submit(submission, seller, category, s.now())
		if err != nil {
			return err
		}
		if err := repos.Evidence.UpdateStatus(ctx, transition.Submission, transition.From); err != nil {
			return err
		}
		if err := repos.Sellers.UpdateProfile(ctx, transition.Seller, transition.Submission.UpdatedAt); err != nil {
			return err
		}
		return s.recordActivity(ctx, repos, actor, models.ActionEvidenceSubmitted, transition.Submission, nil)
	})
	if err != nil {
		failSpan(span, err)
		observability.EvidenceTransitions().WithLabelValues(string(models.EvidenceStatusSubmitted), "failed").Inc()
		return dto.AssessmentResponse{}, err
	}

	observability.EvidenceTransitions().WithLabelValues(string(models.EvidenceStatusSubmitted), "applied").Inc()
	return dto.AssessmentResponse{Evidence: dto.NewEvidenceResponse(transition.Submission)}, nil
}

func (s *assessmentService) Approve(ctx context.Context, evidenceID uint, actor ActivityActor) (dto.AssessmentResponse, error) {
	ctx, span := s.startSpan(ctx, "evidence.approve", evidenceID, actor)
	defer span.End()

	return s.decide(ctx, span, evidenceID, actor, models.EvidenceStatusAssessed, func(submission models.EvidenceSubmission, seller models.Seller, category models.Category, assessor *models.User, now time.Time) (assessment.Transition, error) {
		return assessment.Approve(submission, seller, category, assessor, now)
	})
}

func (s *assessmentService) Reject(ctx context.Context, evidenceID uint, payload dto.EvidenceRejectRequest, actor ActivityActor) (dto.AssessmentResponse, error) {
	ctx, span := s.startSpan(ctx, "evidence.reject", evidenceID, actor)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		err = apperror.FromValidator(err)
		failSpan(span, err)
		return dto.AssessmentResponse{}, err
	}

	rejection := assessment.Rejection{
		FailedCriteria: payload.FailedCriteria,
		ValueForMoney:  payload.ValueForMoney,
	}
	return s.decide(ctx, span, evidenceID, actor, models.EvidenceStatusRejected, func(submission models.EvidenceSubmission, seller models.Seller, _ models.Category, assessor *models.User, now time.Time) (assessment.Transition, error) {
		return assessment.Reject(submission, seller, assessor, rejection, now)
	})
}

type decision func(submission models.EvidenceSubmission, seller models.Seller, category models.Category, assessor *models.User, now time.Time) (assessment.Transition, error)

// decide commits a terminal transition atomically: submission status, seller
// profile, outcome and audit entry. The event is emitted only after commit.
func (s *assessmentService) decide(ctx context.Context, span trace.Span, evidenceID uint, actor ActivityActor, target models.EvidenceStatus, apply decision) (dto.AssessmentResponse, error) {
	assessor, err := s.resolveAssessor(ctx, actor)
	if err != nil {
		failSpan(span, err)
		return dto.AssessmentResponse{}, err
	}

	var transition assessment.Transition
	err = s.uow.Do(ctx, func(repos repository.Repositories) error {
		submission, seller, category, err := loadEvidence(ctx, repos, evidenceID)
		if err != nil {
			return err
		}

		transition, err = apply(submission, seller, category, assessor, s.now())
		if err != nil {
			return err
		}

		if err := repos.Evidence.UpdateStatus(ctx, transition.Submission, transition.From); err != nil {
			return err
		}
		if target == models.EvidenceStatusAssessed {
			if err := repos.Sellers.UpdateProfile(ctx, transition.Seller, transition.Outcome.ActionedAt); err != nil {
				return err
			}
		}
		if err := repos.Evidence.CreateOutcome(ctx, transition.Outcome); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.StateConflict("not submitted")
			}
			return err
		}

		action := models.ActionEvidenceApproved
		if target == models.EvidenceStatusRejected {
			action = models.ActionEvidenceRejected
		}
		return s.recordActivity(ctx, repos, actor, action, transition.Submission, transition.Outcome)
	})
	if err != nil {
		failSpan(span, err)
		observability.EvidenceTransitions().WithLabelValues(string(target), "failed").Inc()
		return dto.AssessmentResponse{}, err
	}

	observability.EvidenceTransitions().WithLabelValues(string(target), "applied").Inc()
	s.logger.Info().
		Uint("evidence_id", evidenceID).
		Uint("actor_id", actor.ID).
		Str("status", string(transition.Submission.Status)).
		Msg("evidence assessed")

	s.events.emit(ctx, events.Assessed(*transition.Outcome))

	outcome := dto.NewAssessmentOutcomeResponse(*transition.Outcome)
	return dto.AssessmentResponse{
		Evidence: dto.NewEvidenceResponse(transition.Submission),
		Outcome:  &outcome,
	}, nil
}

// resolveAssessor returns nil when the acting user does not exist, which the
// workflow reports as an invalid actor.
func (s *assessmentService) resolveAssessor(ctx context.Context, actor ActivityActor) (*models.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *assessmentService) sellerOf(ctx context.Context, actor ActivityActor) (uint, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return 0, lookupError(err, "user")
	}
	if user.SellerID == nil || !user.HasRole(models.RoleSeller) {
		return 0, apperror.Unauthorized("actor is not a seller")
	}
	return *user.SellerID, nil
}

func (s *assessmentService) recordActivity(ctx context.Context, repos repository.Repositories, actor ActivityActor, action string, submission models.EvidenceSubmission, outcome *models.AssessmentOutcome) error {
	metadata := map[string]interface{}{
		"seller_id":   submission.SellerID,
		"category_id": submission.CategoryID,
		"status":      string(submission.Status),
	}
	if outcome != nil {
		metadata["outcome_id"] = outcome.ID
	}

	entry, err := buildActivityLog(ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: models.EntityEvidence,
		EntityID:   &submission.ID,
		Metadata:   metadata,
	})
	if err != nil {
		return err
	}
	return repos.Activity.Create(ctx, &entry)
}

func loadEvidence(ctx context.Context, repos repository.Repositories, evidenceID uint) (models.EvidenceSubmission, models.Seller, models.Category, error) {
	submission, err := repos.Evidence.GetByID(ctx, evidenceID)
	if err != nil {
		return models.EvidenceSubmission{}, models.Seller{}, models.Category{}, lookupError(err, "evidence submission")
	}
	seller, err := repos.Sellers.GetByID(ctx, submission.SellerID)
	if err != nil {
		return models.EvidenceSubmission{}, models.Seller{}, models.Category{}, lookupError(err, "seller")
	}
	category, err := repos.Sellers.GetCategory(ctx, submission.CategoryID)
	if err != nil {
		return models.EvidenceSubmission{}, models.Seller{}, models.Category{}, lookupError(err, "category")
	}
	return submission, seller, category, nil
}
