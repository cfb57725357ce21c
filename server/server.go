// Package server exposes the pricing engine over HTTP.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"pricing-optimizer/models"
	"pricing-optimizer/pipeline"
	"pricing-optimizer/storage"
	"pricing-optimizer/utils"
)

// Server wires the HTTP routes to storage and the pipeline.
type Server struct {
	app          *fiber.App
	store        storage.Store
	orchestrator *pipeline.Orchestrator
	logger       *utils.Logger
}

// New builds the fiber app and registers all routes.
func New(store storage.Store, orchestrator *pipeline.Orchestrator, logger *utils.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "pricing-optimizer",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: errorHandler(logger),
	})
	app.Use(recover.New())

	s := &Server{app: app, store: store, orchestrator: orchestrator, logger: logger}

	app.Get("/healthz", s.health)

	v1 := app.Group("/api/v1")
	v1.Post("/baselines", s.createBaseline)
	v1.Get("/baselines", s.listBaselines)
	v1.Get("/baselines/:id", s.getBaseline)
	v1.Delete("/baselines/:id", s.deleteBaseline)
	v1.Post("/baselines/:id/process", s.triggerProcessing)
	v1.Get("/baselines/:id/status", s.getStatus)
	v1.Get("/baselines/:id/result", s.getResult)
	v1.Get("/baselines/:id/competitors", s.getCompetitors)

	return s
}

// Listen blocks serving HTTP on the given port.
func (s *Server) Listen(port string) error {
	s.logger.Infof("[server] listening on :%s", port)
	return s.app.Listen(":" + port)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// errorHandler maps domain errors to HTTP status codes for anything the
// handlers let bubble up.
func errorHandler(logger *utils.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.As(err, &validationErr):
			code = fiber.StatusBadRequest
		case errors.Is(err, storage.ErrNotFound):
			code = fiber.StatusNotFound
		}

		if code >= 500 {
			logger.Errorf("[server] %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
