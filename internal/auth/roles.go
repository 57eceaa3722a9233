package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cityfix-service/internal/domain"
	"github.com/spec-kit/cityfix-service/pkg/apperrors"
)

// RequireRole ensures the principal holds one of the allowed roles. With no
// roles given it only requires authentication.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireActive rejects blocked users on mutating routes. Blocked users keep
// read access.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.CanAct() {
			return apperrors.NewForbidden("account is blocked")
		}
		return c.Next()
	}
}
