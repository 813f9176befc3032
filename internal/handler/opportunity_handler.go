package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/dto"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

// OpportunityHandler exposes opportunity edit, history and eligibility endpoints.
type OpportunityHandler struct {
	opportunities service.OpportunityService
	eligibility   service.EligibilityService
	logger        zerolog.Logger
}

// NewOpportunityHandler constructs the handler.
func NewOpportunityHandler(opportunities service.OpportunityService, eligibility service.EligibilityService, logger zerolog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		opportunities: opportunities,
		eligibility:   eligibility,
		logger:        logger.With().Str("component", "opportunity_handler").Logger(),
	}
}

// Register attaches opportunity routes behind the supplied guards. A nil guard
// lets every request through.
func (h *OpportunityHandler) Register(router fiber.Router, edit, history, view fiber.Handler) {
	router.Patch("/:id", orNext(edit), h.edit)
	router.Get("/:id/history", orNext(history), h.history)
	router.Get("/:id/eligibility", orNext(view), h.eligibilityCheck)
}

func (h *OpportunityHandler) edit(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid opportunity id")
	}

	var payload dto.OpportunityEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.opportunities.ApplyEdit(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to edit opportunity")
	}

	message := "opportunity updated"
	if !response.Audited {
		message = "no changes"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *OpportunityHandler) history(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid opportunity id")
	}

	entries, err := h.opportunities.History(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load edit history")
	}

	return utils.SendSuccess(c, "edit history", entries)
}

func (h *OpportunityHandler) eligibilityCheck(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid opportunity id")
	}

	decision, err := h.eligibility.Evaluate(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to evaluate eligibility")
	}

	return utils.SendSuccess(c, "eligibility evaluated", decision)
}
