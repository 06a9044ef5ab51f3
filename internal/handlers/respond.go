package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/raceday-mx/raceday-backend/internal/action"
)

// respond renders a typed action result as the wire envelope:
// {ok:true, ...data} or {ok:false, error, field_errors?, details?}.
func respond[T any](c *fiber.Ctx, res action.Result[T]) error {
	if res.OK {
		body := fiber.Map{"ok": true}
		if b, err := json.Marshal(res.Data); err == nil {
			var m map[string]any
			if json.Unmarshal(b, &m) == nil {
				for k, v := range m {
					body[k] = v
				}
			}
		}
		return c.JSON(body)
	}

	body := fiber.Map{"ok": false, "error": res.Kind}
	if res.Message != "" {
		body["message"] = res.Message
	}
	if len(res.FieldErrors) > 0 {
		body["field_errors"] = res.FieldErrors
	}
	if len(res.Details) > 0 {
		body["details"] = res.Details
	}
	return c.Status(res.Status()).JSON(body)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"ok":      false,
		"error":   action.KindInvalidInput,
		"message": "invalid request body",
	})
}
