package session

import (
	"github.com/shammasov-max/locus-guide-back/internal/auth"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the per-tour session endpoints. Checkpoints are
// readable anonymously; start/finish require an authenticated user.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, optionalAuth fiber.Handler) {
	r.Post("/:id/start", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := svc.Start(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	r.Post("/:id/finish", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := svc.Finish(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(sess)
	})

	r.Get("/:id/checkpoints", optionalAuth, func(c *fiber.Ctx) error {
		views, err := svc.CheckpointsFor(c.Context(), auth.UserID(c), c.Params("id"), c.Query("lang", "en"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"checkpoints": views})
	})
}

// RegisterUserRoutes mounts the "my tours" listing.
func RegisterUserRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/tours", authMiddleware, func(c *fiber.Ctx) error {
		details, err := svc.ActiveSessions(c.Context(), auth.UserID(c), c.Query("lang", "en"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"sessions": details})
	})
}
