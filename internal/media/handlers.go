package media

import (
	"github.com/shammasov-max/locus-guide-back/internal/auth"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public narration listing on the
// checkpoints group.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/:id/narration", func(c *fiber.Ctx) error {
		narrations, err := svc.List(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"narration": narrations})
	})
}

// RegisterAdminRoutes mounts the editor upload endpoint.
func RegisterAdminRoutes(r fiber.Router, svc *Service, authMiddleware, editorMiddleware fiber.Handler) {
	r.Post("/:id/narration", authMiddleware, editorMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Lang        string `json:"lang"`
			FileName    string `json:"file_name"`
			DurationSec int    `json:"duration_sec"`
		}
		if err := c.BodyParser(&body); err != nil || body.Lang == "" || body.FileName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "lang and file_name required")
		}

		narration, err := svc.Attach(c.Context(), c.Params("id"), body.Lang, body.FileName, body.DurationSec, auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(narration)
	})
}
