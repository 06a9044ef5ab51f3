package middleware

import (
	"strings"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/config"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

const sessionLocal = "auth_session"

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"ok":    false,
		"error": action.KindUnauthenticated,
	})
}

// JWTProtected validates the bearer access token.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthenticated(c)
		},
	})
}

// SessionContext loads the session row named by the verified JWT. A deleted
// or expired session row fails the request even when the JWT is still
// unexpired, which is what makes account deletion revoke access immediately.
func SessionContext(store repository.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := sessionFromClaims(c)
		if !ok {
			return unauthenticated(c)
		}

		row, err := store.Sessions().FindByID(c.Context(), sess.SessionID)
		if err != nil || row.UserID != sess.UserID || time.Now().After(row.ExpiresAt) {
			return unauthenticated(c)
		}

		c.Locals(sessionLocal, sess)
		return c.Next()
	}
}

// OptionalSession attaches the caller's session when a valid bearer token is
// present, and silently continues otherwise. Used by public endpoints that
// link data to a user when one is signed in.
func OptionalSession(cfg *config.Config, store repository.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.Next()
		}
		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Next()
		}
		c.Locals("user", token)

		sess, ok := sessionFromClaims(c)
		if !ok {
			return c.Next()
		}
		row, err := store.Sessions().FindByID(c.Context(), sess.SessionID)
		if err != nil || row.UserID != sess.UserID || time.Now().After(row.ExpiresAt) {
			return c.Next()
		}
		c.Locals(sessionLocal, sess)
		return c.Next()
	}
}

// SessionFromCtx returns the authenticated session, or nil.
func SessionFromCtx(c *fiber.Ctx) *action.Session {
	if sess, ok := c.Locals(sessionLocal).(*action.Session); ok {
		return sess
	}
	return nil
}

func sessionFromClaims(c *fiber.Ctx) (*action.Session, bool) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	email, _ := claims["email"].(string)

	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, false
	}
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return nil, false
	}

	return &action.Session{UserID: userID, SessionID: sessionID, Email: email}, true
}
