package progress

import (
	"github.com/shammasov-max/locus-guide-back/internal/auth"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"
	"github.com/shammasov-max/locus-guide-back/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

// RegisterCheckpointRoutes mounts the per-checkpoint event endpoints.
func RegisterCheckpointRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/visited", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		}
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		var pos *geo.Point
		if body.Lat != nil && body.Lng != nil {
			pos = &geo.Point{Lat: *body.Lat, Lng: *body.Lng}
		}

		event, err := svc.MarkVisited(c.Context(), auth.UserID(c), c.Params("id"), pos)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(event)
	})

	r.Post("/:id/audio", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil || body.Status == "" {
			return fiber.NewError(fiber.StatusBadRequest, "status required")
		}

		event, err := svc.SetAudioStatus(c.Context(), auth.UserID(c), c.Params("id"), AudioStatus(body.Status))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(event)
	})
}

// RegisterVersionRoutes mounts the aggregate read.
func RegisterVersionRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:id/progress", authMiddleware, func(c *fiber.Ctx) error {
		sum, err := svc.Summary(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(sum)
	})
}
