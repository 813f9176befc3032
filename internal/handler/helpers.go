package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/apperror"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/middleware"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/service"
	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseIDParam(c *fiber.Ctx, key string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals(middleware.LocalUserID).(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		return role
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendServiceError maps an error kind onto its HTTP status. Unclassified
// errors are logged and reported as 500 with the fallback message.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case apperror.KindUnauthorized:
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case apperror.KindValidation:
		details := apperror.DetailsOf(err)
		if len(details) == 0 {
			details = []string{err.Error()}
		}
		return utils.SendErrors(c, fiber.StatusBadRequest, "validation failed", details)
	case apperror.KindStateConflict:
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func orNext(guard fiber.Handler) fiber.Handler {
	if guard == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return guard
}
