package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trading-referral-system/handlers"
	"trading-referral-system/middleware"
	"trading-referral-system/models"
	"trading-referral-system/services"
	"trading-referral-system/utils"
	"trading-referral-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Session-Token, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralSettings{},
		&models.ReferralTransaction{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	identityClient := services.NewIdentityClient()
	settingsService := services.NewSettingsService(db)
	balanceStore := services.NewGormBalanceStore(db)
	referralService := services.NewReferralService(db, settingsService, balanceStore)
	authService := services.NewAuthService(db, identityClient, referralService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// hourly ledger-vs-balance audit
	referralService.StartReconciliationScheduler(1 * time.Hour)

	if utils.ArchiveEnabled() {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiveClient := workers.NewLedgerArchiveClient(db)
		go workers.PollLedgerArchive(ctx, archiveClient, 15*time.Minute)
		log.Println("✅ Ledger archive worker running (every 15m)")
	} else {
		log.Println("⚠️  LEDGER_ARCHIVE_BUCKET not set — ledger archiving disabled")
	}

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupReferralRoutes(app, referralService, settingsService, balanceStore)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Balance reconciliation scheduler running (hourly)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", strings.Join(allowedOriginsList, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
