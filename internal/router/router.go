package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/handlers"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/metrics"
	"github.com/soltixdb/tsinsight/internal/middleware"
	"github.com/soltixdb/tsinsight/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, h *handlers.Handler, cfg config.AuthConfig) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// No auth
	app.Get("/health", h.Health)
	app.Get("/metrics", metrics.Handler())

	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg))

	// Analytics
	v1.Post("/stats", h.Stats)
	v1.Post("/trend", h.Trend)
	v1.Post("/forecast", h.Forecast)
	v1.Get("/methods", h.Methods)

	// Anomaly detection
	v1.Post("/anomalies/detect", h.Detect)
	v1.Post("/anomalies/realtime/:series", h.RealTime)
	v1.Get("/anomalies/history", h.History)
	v1.Delete("/anomalies/history", h.ClearHistory)
	v1.Get("/anomalies/series", h.Series)

	// Profiles
	v1.Get("/profiles", h.ListProfiles)
	v1.Get("/profiles/:name", h.GetProfile)
	v1.Put("/profiles/:name", h.PutProfile)
	v1.Delete("/profiles/:name", h.DeleteProfile)

	app.Use(h.NotFound)
}

// New creates the Fiber app serving the analytics API
func New(logger *logging.Logger, cfg *config.Config,
	analytics *services.AnalyticsService, profiles *services.ProfileService,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tsinsight",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, handlers.New(logger, analytics, profiles), cfg.Auth)
	return app
}
