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

type ProfileHandler struct {
	get    func(context.Context, *action.Session, struct{}) action.Result[*dto.ProfileResponse]
	upsert func(context.Context, *action.Session, dto.ProfileUpsertRequest) action.Result[*dto.ProfileResponse]
}

func NewProfileHandler(svc *services.ProfileService, resolver *access.Resolver) *ProfileHandler {
	h := &ProfileHandler{}

	h.get = action.Wrap(resolver, action.Options{},
		func(ctx context.Context, actor *access.UserContext, _ struct{}) (*dto.ProfileResponse, error) {
			return svc.Get(ctx, actor)
		})

	h.upsert = action.Wrap(resolver, action.Options{},
		func(ctx context.Context, actor *access.UserContext, req dto.ProfileUpsertRequest) (*dto.ProfileResponse, error) {
			return svc.Upsert(ctx, actor, req)
		})

	return h
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	return respond(c, h.get(c.Context(), middleware.SessionFromCtx(c), struct{}{}))
}

func (h *ProfileHandler) Upsert(c *fiber.Ctx) error {
	var req dto.ProfileUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	return respond(c, h.upsert(c.Context(), middleware.SessionFromCtx(c), req))
}
