package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/raceday-mx/raceday-backend/internal/access"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/middleware"
	"github.com/raceday-mx/raceday-backend/internal/services"
)

type changePasswordInput struct {
	sess *action.Session
	req  dto.ChangePasswordRequest
}

type AuthHandler struct {
	svc *services.AuthService

	signOut        func(context.Context, *action.Session, *action.Session) action.Result[dto.MessageResponse]
	changePassword func(context.Context, *action.Session, changePasswordInput) action.Result[dto.MessageResponse]
	me             func(context.Context, *action.Session, struct{}) action.Result[dto.MeResponse]
}

func NewAuthHandler(svc *services.AuthService, resolver *access.Resolver) *AuthHandler {
	h := &AuthHandler{svc: svc}

	h.signOut = action.Wrap(resolver, action.Options{},
		func(ctx context.Context, _ *access.UserContext, sess *action.Session) (dto.MessageResponse, error) {
			if err := svc.SignOut(ctx, sess); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "signed out"}, nil
		})

	h.changePassword = action.Wrap(resolver, action.Options{},
		func(ctx context.Context, actor *access.UserContext, in changePasswordInput) (dto.MessageResponse, error) {
			if err := svc.ChangePassword(ctx, actor, in.sess, in.req); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "password changed"}, nil
		})

	h.me = action.Wrap(resolver, action.Options{},
		func(_ context.Context, actor *access.UserContext, _ struct{}) (dto.MeResponse, error) {
			return dto.MeResponse{Context: actor}, nil
		})

	return h
}

func clientInfo(c *fiber.Ctx) services.ClientInfo {
	return services.ClientInfo{UserAgent: c.Get("User-Agent"), IPAddress: c.IP()}
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	resp, err := h.svc.SignUp(c.Context(), req, clientInfo(c))
	if err != nil {
		return respond(c, action.Fail[*dto.AuthResponse](err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":            true,
		"access_token":  resp.AccessToken,
		"session_token": resp.SessionToken,
		"user":          resp.User,
	})
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	resp, err := h.svc.SignIn(c.Context(), req, clientInfo(c))
	if err != nil {
		return respond(c, action.Fail[*dto.AuthResponse](err))
	}
	return respond(c, action.OK(resp))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	resp, err := h.svc.Refresh(c.Context(), req)
	if err != nil {
		return respond(c, action.Fail[*dto.AuthResponse](err))
	}
	return respond(c, action.OK(resp))
}

func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	return respond(c, h.signOut(c.Context(), sess, sess))
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return respond(c, h.me(c.Context(), middleware.SessionFromCtx(c), struct{}{}))
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.svc.VerifyEmail(c.Context(), req.Token); err != nil {
		return respond(c, action.Fail[dto.MessageResponse](err))
	}
	return respond(c, action.OK(dto.MessageResponse{Message: "email verified"}))
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.svc.ResendVerification(c.Context(), req.Email); err != nil {
		return respond(c, action.Fail[dto.MessageResponse](err))
	}
	return respond(c, action.OK(dto.MessageResponse{Message: "verification sent if the address is registered"}))
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	sess := middleware.SessionFromCtx(c)
	return respond(c, h.changePassword(c.Context(), sess, changePasswordInput{sess: sess, req: req}))
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.svc.ForgotPassword(c.Context(), req.Email); err != nil {
		return respond(c, action.Fail[dto.MessageResponse](err))
	}
	return respond(c, action.OK(dto.MessageResponse{Message: "reset link sent if the address is registered"}))
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	if err := h.svc.ResetPassword(c.Context(), req); err != nil {
		return respond(c, action.Fail[dto.MessageResponse](err))
	}
	return respond(c, action.OK(dto.MessageResponse{Message: "password reset"}))
}
