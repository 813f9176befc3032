package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

// AssessmentHandler exposes the evidence lifecycle endpoints.
type AssessmentHandler struct {
	service service.AssessmentService
	logger  zerolog.Logger
}

// NewAssessmentHandler constructs the handler.
func NewAssessmentHandler(service service.AssessmentService, logger zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assessment_handler").Logger(),
	}
}

// Register attaches evidence routes. seller guards the seller-side steps and
// assessor guards the decisions.
func (h *AssessmentHandler) Register(router fiber.Router, seller, assessor fiber.Handler) {
	seller, assessor = orNext(seller), orNext(assessor)
	router.Post("", seller, h.create)
	router.Post("/:id/submit", seller, h.submit)
	router.Post("/:id/approve", assessor, h.approve)
	router.Post("/:id/reject", assessor, h.reject)
}

func (h *AssessmentHandler) create(c *fiber.Ctx) error {
	var payload dto.EvidenceCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.CreateDraft(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create evidence")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evidence draft created", response)
}

func (h *AssessmentHandler) submit(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evidence id")
	}

	response, err := h.service.Submit(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to submit evidence")
	}

	return utils.SendSuccess(c, "evidence submitted", response)
}

func (h *AssessmentHandler) approve(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evidence id")
	}

	response, err := h.service.Approve(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to approve evidence")
	}

	return utils.SendSuccess(c, "evidence approved", response)
}

func (h *AssessmentHandler) reject(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evidence id")
	}

	var payload dto.EvidenceRejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	response, err := h.service.Reject(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to reject evidence")
	}

	return utils.SendSuccess(c, "evidence rejected", response)
}
