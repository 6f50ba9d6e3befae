package tour

import (
	"github.com/shammasov-max/locus-guide-back/internal/auth"
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterAdminRoutes mounts the editor surface. Both middlewares come
// from the auth package: token validation, then the editor role gate.
func RegisterAdminRoutes(r fiber.Router, svc *Service, authMiddleware, editorMiddleware fiber.Handler) {
	r.Use(authMiddleware, editorMiddleware)

	r.Post("/", func(c *fiber.Ctx) error {
		var req Tour
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.CreatedBy = auth.UserID(c)
		created, err := svc.CreateTour(c.Context(), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		t, err := svc.GetTour(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(t)
	})

	r.Get("/:id/versions", func(c *fiber.Ctx) error {
		versions, err := svc.ListVersions(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"tour_id": c.Params("id"), "versions": versions})
	})

	r.Post("/:id/versions", func(c *fiber.Ctx) error {
		var content VersionContent
		if err := c.BodyParser(&content); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		v, err := svc.CreateVersion(c.Context(), c.Params("id"), auth.UserID(c), content)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	})

	r.Post("/:id/versions/:versionID/review", func(c *fiber.Ctx) error {
		v, err := svc.SubmitForReview(c.Context(), c.Params("id"), c.Params("versionID"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(v)
	})

	r.Post("/:id/publish", func(c *fiber.Ctx) error {
		var body struct {
			VersionID string `json:"version_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.VersionID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "version_id required")
		}
		t, err := svc.Publish(c.Context(), c.Params("id"), body.VersionID)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(t)
	})
}
