package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// AdminAuth lets only admin principals through. It must run after JWTAuth.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := GetPrincipal(c)
		if !ok || principal.UserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authentication required",
			})
		}

		if !principal.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "access denied",
			})
		}

		return c.Next()
	}
}

// IsAdmin checks if the current caller is an admin
func IsAdmin(c *fiber.Ctx) bool {
	principal, ok := GetPrincipal(c)
	return ok && principal.IsAdmin()
}
