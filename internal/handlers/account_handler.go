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

type AccountHandler struct {
	deleteOwn func(context.Context, *action.Session, dto.DeleteAccountRequest) action.Result[dto.MessageResponse]
}

func NewAccountHandler(svc *services.AccountService, resolver *access.Resolver) *AccountHandler {
	h := &AccountHandler{}
	h.deleteOwn = action.Wrap(resolver, action.Options{},
		func(ctx context.Context, actor *access.UserContext, req dto.DeleteAccountRequest) (dto.MessageResponse, error) {
			if err := svc.DeleteOwnAccount(ctx, actor, req.Password); err != nil {
				return dto.MessageResponse{}, err
			}
			return dto.MessageResponse{Message: "account deleted"}, nil
		})
	return h
}

// DeleteOwn deletes the caller's account. The workflow removes every
// session, so success doubles as sign-out.
func (h *AccountHandler) DeleteOwn(c *fiber.Ctx) error {
	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.deleteOwn(c.Context(), middleware.SessionFromCtx(c), req))
}
