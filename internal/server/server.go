package server

import (
	"github.com/shammasov-max/locus-guide-back/internal/auth"
	"github.com/shammasov-max/locus-guide-back/internal/config"
	"github.com/shammasov-max/locus-guide-back/internal/media"
	"github.com/shammasov-max/locus-guide-back/internal/notify"
	"github.com/shammasov-max/locus-guide-back/internal/progress"
	"github.com/shammasov-max/locus-guide-back/internal/session"
	"github.com/shammasov-max/locus-guide-back/internal/tour"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Events *notify.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Events: notify.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	optionalAuth := auth.OptionalJWT(s.Cfg.JWTSecret)
	editorOnly := auth.RequireRole(auth.RoleEditor)

	tourStore := tour.NewStore(s.DB)
	tourSvc := tour.NewService(s.DB, tourStore, s.Events)
	progressSvc := progress.NewService(s.DB, s.Events)
	sessionSvc := session.NewService(s.DB, tourStore, progressSvc, s.Events)
	mediaSvc := media.NewService(s.DB)

	tour.RegisterRoutes(s.App.Group("/tours"), tourSvc)
	tour.RegisterAdminRoutes(s.App.Group("/admin/tours"), tourSvc, jwtMiddleware, editorOnly)

	session.RegisterRoutes(s.App.Group("/tours"), sessionSvc, jwtMiddleware, optionalAuth)
	session.RegisterUserRoutes(s.App.Group("/me"), sessionSvc, jwtMiddleware)

	progress.RegisterCheckpointRoutes(s.App.Group("/checkpoints"), progressSvc, jwtMiddleware)
	progress.RegisterVersionRoutes(s.App.Group("/versions"), progressSvc, jwtMiddleware)

	media.RegisterRoutes(s.App.Group("/checkpoints"), mediaSvc)
	media.RegisterAdminRoutes(s.App.Group("/admin/checkpoints"), mediaSvc, jwtMiddleware, editorOnly)

	notify.RegisterRoutes(s.App.Group("/events"), s.Events)
}
