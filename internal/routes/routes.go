package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/raceday-mx/raceday-backend/internal/handlers"
	"github.com/raceday-mx/raceday-backend/internal/middleware"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	store repository.Store,
	resolver *access.Resolver,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	profileHandler *handlers.ProfileHandler,
	adminHandler *handlers.AdminHandler,
	contactHandler *handlers.ContactHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Contact form is public; a valid bearer token links the submission.
	api.Post("/contact", middleware.OptionalSession(cfg, store), contactHandler.Submit)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/sign-up", authHandler.SignUp)
	auth.Post("/sign-in", authHandler.SignIn)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-verification", authHandler.ResendVerification)
	auth.Post("/password/forgot", authHandler.ForgotPassword)
	auth.Post("/password/reset", authHandler.ResetPassword)

	// Protected routes: JWT plus a live session row.
	authed := []fiber.Handler{middleware.JWTProtected(cfg), middleware.SessionContext(store)}

	api.Post("/auth/sign-out", append(authed, authHandler.SignOut)...)
	api.Post("/auth/password/change", append(authed, authHandler.ChangePassword)...)
	api.Get("/me", append(authed, authHandler.Me)...)
	api.Get("/profile", append(authed, profileHandler.Get)...)
	api.Put("/profile", append(authed, profileHandler.Upsert)...)
	api.Delete("/account", append(authed, accountHandler.DeleteOwn)...)

	// Admin console: internal role required on top of authentication.
	admin := api.Group("/admin",
		middleware.JWTProtected(cfg),
		middleware.SessionContext(store),
		middleware.InternalRequired(resolver),
	)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/users", adminHandler.CreateUser)
	admin.Delete("/users/:id", adminHandler.DeleteUser)
	admin.Post("/users/:id/roles", adminHandler.AssignRoles)
	admin.Delete("/users/:id/roles/:role", adminHandler.RevokeRole)
}
