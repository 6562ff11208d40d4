// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts user identity and roles set by the Gateway.
// Secured routes (/s/...) must carry X-User-ID; handlers read identity from
// fiber locals only, never from request parameters.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/")
		if isSecured && userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireAdmin guards admin-only routes. It trusts the role list forwarded
// by the Gateway; the balance/settings services themselves do no role checks.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == "admin" {
				return c.Next()
			}
		}
		log.Printf("🚫 [ADMIN] user %v denied on %s", c.Locals("user_id"), c.Path())
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin role required",
		})
	}
}
