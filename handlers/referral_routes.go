// handlers/referral_routes.go
package handlers

import (
	"errors"
	"log"
	"math"
	"strconv"
	"strings"

	"trading-referral-system/middleware"
	"trading-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupReferralRoutes wires the user-facing referral endpoints and the admin
// management surface. Identity always comes from the gateway user context.
func SetupReferralRoutes(app *fiber.App, referrals *services.ReferralService, settings *services.SettingsService, balances services.BalanceStore) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/referral/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, err := referrals.GetUserReferralStats(userID)
		if err != nil {
			log.Printf("❌ [REFERRAL] stats failed for %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral stats"})
		}
		return c.JSON(stats)
	})

	secured.Get("/referral/network", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		network, err := referrals.GetUserReferralNetwork(userID)
		if err != nil {
			log.Printf("❌ [REFERRAL] network failed for %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral network"})
		}
		return c.JSON(network)
	})

	secured.Get("/referral/settings", func(c *fiber.Ctx) error {
		current, err := settings.Latest()
		if err != nil {
			if errors.Is(err, services.ErrNoSettings) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No referral settings found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referral settings"})
		}
		return c.JSON(current)
	})

	secured.Post("/referral/transfer", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			RecipientEmail string  `json:"recipient_email"`
			Amount         float64 `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		// shape checks happen here, before anything touches storage
		req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
		if req.RecipientEmail == "" || !strings.Contains(req.RecipientEmail, "@") {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid recipient email"})
		}
		if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a positive number"})
		}

		result, err := balances.TransferCoins(userID, req.RecipientEmail, req.Amount)
		if err != nil {
			return transferError(c, err)
		}
		return c.JSON(fiber.Map{"message": "Transfer completed", "result": result})
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Put("/referral/settings/:id", func(c *fiber.Ctx) error {
		var patch services.SettingsPatch
		if err := c.BodyParser(&patch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		updated, err := settings.Update(c.Params("id"), patch)
		if err != nil {
			if errors.Is(err, services.ErrNoSettings) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Settings not found"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(updated)
	})

	admin.Post("/referral/settings", func(c *fiber.Ctx) error {
		var patch services.SettingsPatch
		if err := c.BodyParser(&patch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		created, err := settings.Create(patch)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	admin.Post("/referral/adjust", func(c *fiber.Ctx) error {
		adminID := c.Locals("user_id").(string)

		var req struct {
			UserID string  `json:"user_id"`
			Amount float64 `json:"amount"` // signed: positive credits, negative debits
			Reason string  `json:"reason"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}
		if req.Amount == 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be a non-zero number"})
		}
		if strings.TrimSpace(req.Reason) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required for audit"})
		}

		result, err := balances.AdminAdjustBalance(req.UserID, req.Amount, req.Reason, adminID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
			}
			if errors.Is(err, services.ErrInsufficientBalance) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "adjustment would make balance negative"})
			}
			log.Printf("❌ [ADMIN] adjustment failed for %s: %v", req.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Balance adjustment failed"})
		}
		return c.JSON(fiber.Map{"message": "Balance adjusted", "result": result})
	})

	admin.Get("/referral/transactions", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "100"))

		views, err := referrals.RecentTransactions(c.Query("user_id"), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch transactions"})
		}
		return c.JSON(views)
	})
}

func transferError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrRecipientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	case errors.Is(err, services.ErrSelfTransfer),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrBelowMinBalance):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoSettings):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Transfers are not configured"})
	default:
		log.Printf("❌ [TRANSFER] failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Coin transfer failed"})
	}
}
