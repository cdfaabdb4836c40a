package api

import (
	"time"

	_ "student-performance/docs"
	"student-performance/internal/api/handlers"
	"student-performance/internal/metrics"
	"student-performance/pkg/auth"
	"student-performance/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Prediction *handlers.PredictionHandler
	Health     *handlers.HealthHandler
}

// Options tune the fiber app. Zero timeouts disable the limit.
type Options struct {
	CORSAllowOrigins string
	AccessLog        bool
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

func SetupRouter(
	h Handlers,
	jwtManager *auth.JWTManager,
	revocations *auth.RevocationList,
	opts Options,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSAllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	if opts.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)
	app.Get("/metrics", metrics.Handler())

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	v1 := app.Group("/api/v1")

	// Classification alone needs no account
	v1.Post("/predictions/classify", h.Prediction.Classify)

	// Protected routes
	authRequired := middleware.AuthMiddleware(jwtManager, revocations, appLogger)
	v1.Get("/session", authRequired, h.Auth.Session)
	v1.Post("/auth/logout", authRequired, h.Auth.Logout)
	v1.Post("/predictions", authRequired, h.Prediction.CreatePrediction)
	v1.Get("/predictions", authRequired, h.Prediction.ListPredictions)

	return app
}
