package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"creator-progress-system/handlers"
	"creator-progress-system/middleware"
	"creator-progress-system/models"
	"creator-progress-system/services"
	"creator-progress-system/utils"
	"creator-progress-system/workers"

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

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — largest payload is an achievement icon
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.CreatorProgress{},
		&models.UserAchievement{},
		&models.CreatorUser{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := services.NewGormProgressStore(db)
	guard := services.NewAwardGuard(services.GuardConfig{})
	bus := services.NewEventBus()
	ledger := services.NewPendingLedger(services.DefaultPendingTTL)
	awardService := services.NewAwardService(store, guard, bus)

	// Overlay retires pending deltas on reward / reward_failed events
	stopWatch := ledger.Watch(bus)
	defer stopWatch()

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("PROGRESS_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("PROGRESS_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewProfileSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	sched := services.StartMaintenanceScheduler(guard, ledger)
	defer func() { _ = sched.Shutdown() }()

	handlers.SetupProgressRoutes(app, awardService, store, ledger, bus, authClient)
	handlers.SetupCatalogRoutes(app)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Maintenance scheduler running (window reset at midnight, sweeps every minute)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)
	log.Printf("✅ Achievement catalog loaded: %d entries", len(models.AchievementCatalog))

	<-ctx.Done()
	log.Println("Shutting down server...")
}
