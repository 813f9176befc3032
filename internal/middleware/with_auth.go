package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Crown-Commercial-Service/digitalmarketplace-api-sub003/internal/utils"
)

// Auth role constants used by WithAuth.
const (
	AuthRoleAny      = "any"
	AuthRoleBuyer    = "buyer"
	AuthRoleSeller   = "seller"
	AuthRoleAssessor = "assessor"
	AuthRoleAdmin    = "admin"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and role guards. Admins pass
// every role guard except the seller one, since sellers act on their own
// records only.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if !requireUser && role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals(LocalUserID)
		if requireUser && userID == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := normalizeRoleValue(c.Locals(LocalUserRole))
		switch {
		case currentRole == role:
		case currentRole == AuthRoleAdmin && role != AuthRoleSeller:
		default:
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_role": role})
		}

		return handler(c)
	}
}
