package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/veerdrishti/veerdrishti/internal/api/docs"
	"github.com/veerdrishti/veerdrishti/internal/api/handler"
	"github.com/veerdrishti/veerdrishti/internal/api/middleware"
	"github.com/veerdrishti/veerdrishti/internal/ws"
)

// Dependencies are the running components the HTTP layer reads from.
type Dependencies struct {
	Faces    *handler.FaceHandler
	Live     handler.SnapshotReader
	Models   handler.ClassifierService
	History  handler.HistoryService
	Soldiers handler.SoldierSource
	Hub      *ws.Hub

	// EnrollRateLimit is the number of register-face uploads allowed per IP per minute.
	EnrollRateLimit int
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(logger),
		AppName:               "VeerDrishti",
		BodyLimit:             12 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.Live)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	api := r.app.Group("/api")

	cfg := middleware.DefaultRateLimiterConfig()
	if r.deps.EnrollRateLimit > 0 {
		cfg.Max = r.deps.EnrollRateLimit
	}
	r.rateLimiter = middleware.NewRateLimiter(cfg)

	// Gallery
	api.Post("/register-face", r.rateLimiter.Handler(), r.deps.Faces.Register)
	api.Get("/faces", r.deps.Faces.List)
	api.Delete("/faces/:id", r.deps.Faces.Delete)

	// Live snapshot
	liveHandler := handler.NewLiveHandler(r.deps.Live)
	api.Get("/frame.jpg", liveHandler.Frame)
	api.Get("/detections", liveHandler.Detections)

	// Classifier
	classifierHandler := handler.NewClassifierHandler(r.deps.Models)
	api.Get("/classifier", classifierHandler.Stats)
	api.Post("/train", classifierHandler.Train)

	// Alert history
	api.Get("/alerts", handler.NewAlertHandler(r.deps.History).List)

	// Telemetry
	api.Get("/soldiers", handler.NewSoldierHandler(r.deps.Soldiers).List)

	// WebSocket endpoint
	if r.deps.Hub != nil {
		api.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
