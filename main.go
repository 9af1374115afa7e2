package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"email-scanner/config"
	"email-scanner/handlers"
	"email-scanner/middleware"
	"email-scanner/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	// Initialize structured logger
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(logHandler))

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sessionLifetime := time.Duration(cfg.SessionExpireDays) * 24 * time.Hour

	// Initialize MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := services.InitMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DatabaseName)
	if err := services.CreateIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Stores and session token codec
	users := services.NewUserStore(db)
	sessions := services.NewSessionStore(db, sessionLifetime)
	scans := services.NewScanStore(db)
	codec := services.NewTokenCodec(cfg.SessionSecret, sessionLifetime)

	// Load the spam classifier once; it is read-only afterwards and shared by
	// all scans.
	classifier, err := services.LoadClassifier(cfg.ModelPath)
	if err != nil {
		slog.Error("Failed to load spam classifier", "error", err, "path", cfg.ModelPath)
		os.Exit(1)
	}
	slog.Info("Spam classifier loaded", "path", cfg.ModelPath)

	// Gmail mailbox client, headless refresh-token flow. A missing credential
	// is tolerated at startup; scans will fail until one is provisioned.
	gmailToken, err := services.LoadGmailToken(cfg.GmailTokenFile)
	if err != nil {
		slog.Warn("Gmail credential not available, scans will fail until provisioned", "error", err)
	}
	mailbox := services.NewGmailClient(
		services.NewGmailOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
		gmailToken,
	)

	scanner := services.NewScanner(mailbox, classifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(users, sessions, codec, cfg.SessionCookieName, sessionLifetime)
	googleHandler := handlers.NewGoogleHandler(users, sessions, codec, cfg.SessionCookieName, sessionLifetime,
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	emailHandler := handlers.NewEmailHandler(scanner, scans, cfg.MaxEmails)

	requireAuth := middleware.RequireAuth(cfg.SessionCookieName, codec, sessions)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	// Routes
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Get("/google", googleHandler.Login)
	auth.Get("/google/callback", googleHandler.Callback)

	api.Post("/scan-emails", requireAuth, emailHandler.ScanEmails)
	api.Get("/stats", requireAuth, emailHandler.GetStats)
	api.Get("/emails/:emailType", requireAuth, emailHandler.GetEmails)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "email-scanner",
		})
	})

	// Start server
	slog.Info("Server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
