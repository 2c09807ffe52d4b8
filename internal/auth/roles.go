package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/dispatch/internal/domain"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// RequireRole ensures the actor has one of the allowed roles. No roles means
// any authenticated actor.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
