package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/raceday-mx/raceday-backend/internal/action"
)

// InternalRequired gates the admin console on the caller holding an internal
// role. The wrapped actions re-check IsInternal themselves; this middleware
// just fails fast before any body parsing happens.
func InternalRequired(resolver action.ContextResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFromCtx(c)
		if sess == nil {
			return unauthenticated(c)
		}

		actor, err := resolver.ResolveForSession(c.Context(), sess.UserID, sess.SessionID)
		if err != nil {
			// The user behind the session no longer exists.
			if action.KindOf(err) == action.KindNotFound {
				return unauthenticated(c)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok":    false,
				"error": action.KindServerError,
			})
		}
		if !actor.IsInternal {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"ok":    false,
				"error": action.KindForbidden,
			})
		}
		return c.Next()
	}
}
