package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/eligibility"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/models"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/observability"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/repository"
)

// EligibilityService resolves the facts eligibility depends on and evaluates them.
type EligibilityService interface {
	Evaluate(ctx context.Context, opportunityID uint, actor ActivityActor) (dto.EligibilityResponse, error)
}

type eligibilityService struct {
	repos     repository.Repositories
	evaluator *eligibility.Evaluator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEligibilityService constructs the eligibility service.
func NewEligibilityService(repos repository.Repositories, evaluator *eligibility.Evaluator, logger zerolog.Logger) EligibilityService {
	return &eligibilityService{
		repos:     repos,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "eligibility_service").Logger(),
		now:       time.Now,
	}
}

func (s *eligibilityService) Evaluate(ctx context.Context, opportunityID uint, actor ActivityActor) (dto.EligibilityResponse, error) {
	tracer := otel.Tracer("github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service/eligibility")
	ctx, span := tracer.Start(ctx, "eligibility.evaluate")
	span.SetAttributes(
		attribute.Int64("eligibility.opportunity_id", int64(opportunityID)),
		attribute.Int64("eligibility.actor_id", int64(actor.ID)),
	)
	defer span.End()

	user, err := s.repos.Users.GetByID(ctx, actor.ID)
	if err != nil {
		err = lookupError(err, "user")
		failSpan(span, err)
		return dto.EligibilityResponse{}, err
	}

	opportunity, err := s.repos.Opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		err = lookupError(err, "opportunity")
		failSpan(span, err)
		return dto.EligibilityResponse{}, err
	}

	subject := eligibility.Actor{
		Kind:   eligibility.ActorBuyer,
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
	}
	if user.HasRole(models.RoleSeller) {
		subject.Kind = eligibility.ActorSeller
		if err := s.resolveSeller(ctx, opportunity, user, &subject); err != nil {
			failSpan(span, err)
			return dto.EligibilityResponse{}, err
		}
	}

	decision := s.evaluator.Evaluate(opportunity, subject)
	span.SetAttributes(
		attribute.Bool("eligibility.can_view", decision.CanView),
		attribute.Bool("eligibility.can_respond", decision.CanRespond),
		attribute.String("eligibility.reason", decision.Reason),
	)
	observability.EligibilityDecisions().WithLabelValues(strconv.FormatBool(decision.CanRespond), decision.Reason).Inc()

	return dto.NewEligibilityResponse(opportunity.ID, decision), nil
}

// resolveSeller loads the seller record and its counters. A seller user with
// no seller record is evaluated as an invalid seller rather than failing.
func (s *eligibilityService) resolveSeller(ctx context.Context, opportunity models.Opportunity, user models.User, subject *eligibility.Actor) error {
	if user.SellerID == nil {
		return nil
	}

	seller, err := s.repos.Sellers.GetByID(ctx, *user.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Uint("user_id", user.ID).Uint("seller_id", *user.SellerID).Msg("seller record missing for seller user")
			return nil
		}
		return err
	}
	subject.Seller = &seller

	count, err := s.repos.Responses.CountActive(ctx, opportunity.ID, seller.ID)
	if err != nil {
		return err
	}
	subject.ResponseCount = count
	subject.CandidateInfoComplete = eligibility.CandidateInfoComplete(seller, s.now())
	return nil
}
