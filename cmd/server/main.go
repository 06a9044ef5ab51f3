package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/cache"
	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/raceday-mx/raceday-backend/internal/database"
	"github.com/raceday-mx/raceday-backend/internal/handlers"
	"github.com/raceday-mx/raceday-backend/internal/logging"
	"github.com/raceday-mx/raceday-backend/internal/middleware"
	"github.com/raceday-mx/raceday-backend/internal/models"
	"github.com/raceday-mx/raceday-backend/internal/repository"
	"github.com/raceday-mx/raceday-backend/internal/routes"
	"github.com/raceday-mx/raceday-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.SeedRoles(); err != nil {
		slog.Error("role seeding failed", "error", err)
		os.Exit(1)
	}

	// Route WARN+ records into audit_logs as well.
	auditHandler := logging.NewAuditHandler(database.DB)
	stdoutHandler := slog.Default().Handler()
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, auditHandler)))

	retentionDone := make(chan struct{})
	logging.StartRetention(database.DB, retentionDone)

	// Stores and services
	store := repository.NewGormStore(database.DB)
	projections := cache.NewProjectionCache(cfg)
	if projections == nil {
		slog.Info("projection cache disabled (REDIS_ADDR not set)")
	}
	resolver := access.NewResolver(store, projections)

	authService := services.NewAuthService(store, resolver, cfg, services.LogMailer{})
	accountService := services.NewAccountService(store, resolver, authService)
	adminService := services.NewAdminService(store, resolver)
	profileService := services.NewProfileService(store, resolver)
	contactService := services.NewContactService(store)

	if err := seedAdmin(cfg, store); err != nil {
		slog.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, resolver)
	accountHandler := handlers.NewAccountHandler(accountService, resolver)
	profileHandler := handlers.NewProfileHandler(profileService, resolver)
	adminHandler := handlers.NewAdminHandler(adminService, accountService, resolver)
	contactHandler := handlers.NewContactHandler(contactService)
	healthHandler := handlers.NewHealthHandler(projections)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, store, resolver,
		authHandler, accountHandler, profileHandler, adminHandler, contactHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(retentionDone)
	auditHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// seedAdmin provisions the bootstrap admin user when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no such user exists yet.
func seedAdmin(cfg *config.Config, store repository.Store) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	ctx := context.Background()

	if _, err := store.Users().FindActiveByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	role, err := store.Roles().FindByName(ctx, "admin")
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		ID:            uuid.New(),
		Email:         cfg.AdminEmail,
		Name:          cfg.AdminName,
		EmailVerified: true,
	}
	return store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			return err
		}
		h := string(hash)
		if err := tx.Accounts().Create(ctx, &models.Account{
			ID:           uuid.New(),
			UserID:       user.ID,
			ProviderID:   models.ProviderCredential,
			PasswordHash: &h,
		}); err != nil {
			return err
		}
		return tx.UserRoles().Assign(ctx, user.ID, role.ID, nil)
	})
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	kind := action.KindServerError
	switch {
	case code == fiber.StatusNotFound:
		kind = action.KindNotFound
	case code < 500:
		kind = action.KindInvalidInput
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"ok":      false,
		"error":   kind,
		"message": message,
	})
}
