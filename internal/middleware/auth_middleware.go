package middleware

import (
	"strings"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "user_id"
	localRole   = "role"
)

// AuthMiddleware validates the bearer token and stores user_id and role in c.Locals.
func AuthMiddleware(issuer *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperr.Unauthorized("missing token")
		}

		// Ensure it's a Bearer token
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			return apperr.Unauthorized("invalid token format")
		}

		claims, err := issuer.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			return apperr.Unauthorized("invalid token")
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localRole, claims.Role)
		return c.Next()
	}
}

// ActorFrom returns the caller stored by AuthMiddleware. It is the zero Actor on public routes.
func ActorFrom(c *fiber.Ctx) services.Actor {
	userID, _ := c.Locals(localUserID).(string)
	role, _ := c.Locals(localRole).(string)
	return services.Actor{UserID: userID, Role: role}
}
