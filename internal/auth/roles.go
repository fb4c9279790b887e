package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/custody-service/internal/domain"
	apperrors "github.com/spec-kit/custody-service/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. Must run
// after AuthMiddleware.Handle; an absent principal is an authentication
// failure, not an authorization one.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Identity == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present without a role check.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
