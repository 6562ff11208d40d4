// handlers/auth_routes.go
package handlers

import (
	"strings"

	"trading-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes wires registration and session endpoints. These sit in
// front of the hosted identity provider; failures come back as descriptive
// messages, never as provider internals.
func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	app.Post("/auth/register", func(c *fiber.Ctx) error {
		var req struct {
			Username     string `json:"username"`
			Email        string `json:"email"`
			Password     string `json:"password"`
			ReferralCode string `json:"referral_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username, email and password are required"})
		}
		if !strings.Contains(req.Email, "@") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid email address"})
		}

		user, err := authService.Register(req.Username, req.Email, req.Password, strings.TrimSpace(req.ReferralCode))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
	})

	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		session, user, err := authService.Login(req.Email, req.Password)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{"session": session, "user": user})
	})

	// The Gateway keeps Authorization for its own service token, so user
	// sessions travel in X-Session-Token.
	app.Post("/auth/logout", func(c *fiber.Ctx) error {
		token := c.Get("X-Session-Token")
		if err := authService.Logout(token); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "Signed out"})
	})
}
