package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/raceday-mx/raceday-backend/internal/action"
	"github.com/raceday-mx/raceday-backend/internal/dto"
	"github.com/raceday-mx/raceday-backend/internal/middleware"
	"github.com/raceday-mx/raceday-backend/internal/services"
)

type ContactHandler struct {
	svc *services.ContactService
}

func NewContactHandler(svc *services.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Submit accepts a contact-form entry. When a valid session rode along, the
// submission is linked to that user.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	var userID *uuid.UUID
	if sess := middleware.SessionFromCtx(c); sess != nil {
		userID = &sess.UserID
	}

	if err := h.svc.Submit(c.Context(), userID, req, clientInfo(c)); err != nil {
		return respond(c, action.Fail[dto.MessageResponse](err))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"message": "submission received",
	})
}
