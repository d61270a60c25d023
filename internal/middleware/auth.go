package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/webagency/backend/internal/auth"
)

const PrincipalKey = "principal"

// JWTAuth verifies the bearer token and stores the caller in the request locals.
func JWTAuth(issuer *auth.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := issuer.Parse(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			message := "invalid token"
			if errors.Is(err, auth.ErrMissingToken) {
				message = "authentication required"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   message,
			})
		}

		c.Locals(PrincipalKey, principal)
		return c.Next()
	}
}

// GetPrincipal returns the authenticated caller. ok is false on routes
// without JWTAuth.
func GetPrincipal(c *fiber.Ctx) (auth.Principal, bool) {
	principal, ok := c.Locals(PrincipalKey).(auth.Principal)
	return principal, ok
}

// GetUserID returns the caller's user ID, or "" when unauthenticated.
func GetUserID(c *fiber.Ctx) string {
	principal, _ := GetPrincipal(c)
	return principal.UserID
}
