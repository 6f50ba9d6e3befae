package tour

import (
	"github.com/shammasov-max/locus-guide-back/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the public catalog endpoints.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/", func(c *fiber.Ctx) error {
		items, err := svc.ListPublished(c.Context(), c.QueryInt("city_id", 0), c.Query("lang", "en"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(fiber.Map{"count": len(items), "tours": items})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		detail, err := svc.GetDetail(c.Context(), c.Params("id"), c.Query("lang", "en"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(detail)
	})
}
