package server

import (
	"context"
	"strings"
	"time"

	"ai-docguard-be/internal/bootstrap"
	"ai-docguard-be/internal/config"
	"ai-docguard-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.App.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          serverutils.ErrorHandler(cfg.IsProduction(), container.Logger),
		DisableStartupMessage: cfg.IsProduction(),
		// Params and form values outlive the handler in hub keys and cache keys.
		Immutable: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: !allowsAnyOrigin(cfg.App.CorsAllowedOrigins),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(container.Metrics.Handler()))

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

// allowsAnyOrigin reports whether origins contains the "*" wildcard, which the
// CORS middleware refuses to combine with credentials.
func allowsAnyOrigin(origins string) bool {
	for _, o := range strings.Split(origins, ",") {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("Server", "Listening", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api")
	c.HealthController.RegisterRoutes(api)

	if cfg.App.RateLimitMax > 0 {
		api.Use(limiter.New(limiter.Config{
			Max:        cfg.App.RateLimitMax,
			Expiration: time.Minute,
			LimitReached: func(ctx *fiber.Ctx) error {
				return ctx.Status(fiber.StatusTooManyRequests).JSON(
					serverutils.KindErrorResponse(fiber.StatusTooManyRequests, "RATE_LIMITED", "too many requests"))
			},
		}))
	}

	ws := app.Group("/ws")
	if cfg.App.JwtSecret != "" {
		api.Use(serverutils.JwtMiddleware(cfg.App.JwtSecret))
		ws.Use(serverutils.JwtMiddleware(cfg.App.JwtSecret))
	}

	c.DocumentController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
	c.SessionController.RegisterRoutes(api)

	c.SessionFeedHandler.RegisterRoutes(ws)
}
