package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/database"
	"github.com/hirelens/ats-sync-svc/internal/handlers"
	"github.com/hirelens/ats-sync-svc/internal/logger"
	"github.com/hirelens/ats-sync-svc/internal/rabbitmq"
	"github.com/hirelens/ats-sync-svc/internal/routes"
	"github.com/hirelens/ats-sync-svc/internal/service"
	"github.com/hirelens/ats-sync-svc/internal/webhook"
)

func main() {
	// Local development reads a .env file; deployed environments set
	// real variables and have no file.
	_ = godotenv.Load()

	if err := logger.Init(os.Getenv("LOG_LEVEL")); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.Connect(&cfg.Database, logger.Component("database"))
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger.Component("database")); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}
	}()

	if err := database.RunMigrations(&cfg.Database, logger.Component("database")); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	rmq := rabbitmq.NewConnection(&cfg.RabbitMQ, logger.Component("rabbitmq"))
	if err := rmq.Connect(); err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rmq.Close()

	svc := service.NewService(cfg, db, rmq)

	if err := svc.Queue.Setup(); err != nil {
		logger.Fatal("Failed to set up enrichment queue", zap.Error(err))
	}
	if err := svc.Consumer.Start(); err != nil {
		logger.Fatal("Failed to start enrichment consumer", zap.Error(err))
	}
	defer svc.Consumer.Stop()

	svc.Scheduler.Start()
	defer svc.Scheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "ATS Sync Service",
		ServerHeader: "Fiber",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(routes.RequestLogger(logger.Component("http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-ATS-Signature",
	}))

	// Setup routes
	routes.SetupRoutes(
		app,
		handlers.NewHealthHandler(db, rmq),
		handlers.NewOAuthHandler(svc.OAuth, cfg.Server.ConnectRedirectURL, logger.Component("oauth")),
		webhook.NewHandler(cfg, svc.Store, svc.Client, svc.Gate, svc.Queue, logger.Component("webhook")),
		handlers.NewAuditHandler(svc.Store.Audits(), logger.Component("audit")),
		handlers.NewSyncHandler(svc.Store.SyncRuns(), svc.Syncer, svc.Scheduler, logger.Component("sync")),
	)

	// Start server in a goroutine
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	svc.Scheduler.Stop()
	svc.Consumer.Stop()
	if err := app.Shutdown(); err != nil {
		logger.Error("Error during server shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
