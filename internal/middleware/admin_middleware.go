package middleware

import (
	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RequireRoles lets the request through only if AuthMiddleware stored one of roles.
func RequireRoles(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(localRole).(string)
		if role == "" {
			return apperr.Unauthorized("missing token")
		}
		if !allowed[role] {
			return apperr.Forbidden("access denied for role %s", role)
		}
		return c.Next()
	}
}

// AdminMiddleware ensures that only users with "admin" role can access admin routes
func AdminMiddleware() fiber.Handler {
	return RequireRoles(models.RoleAdmin)
}
