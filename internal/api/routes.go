package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func SetupRoutes(app *fiber.App, handler *Handler, log *zap.Logger) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,DELETE",
	}))

	// Custom logger middleware
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", handler.GetHealth)

	// Config flow
	api.Get("/flow/user", handler.ShowUserStep)
	api.Post("/flow/user", handler.SubmitUserStep)

	// Config entries
	entries := api.Group("/entries")
	entries.Get("/", handler.ListEntries)
	entries.Get("/:id", handler.GetEntry)
	entries.Delete("/:id", handler.DeleteEntry)
	entries.Post("/:id/refresh", handler.RefreshEntry)
	entries.Get("/:id/sensors", handler.GetSensors)

	api.Get("/scheduler", handler.GetScheduler)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		log.Debug("Endpoint not found", zap.String("path", c.Path()))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
			"path":  c.Path(),
		})
	})
}

// ErrorHandler logs the failed request and renders the error as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	zap.L().Error("HTTP error",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))

	// Default to 500 status code
	code := fiber.StatusInternalServerError

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   err.Error(),
		"success": false,
	})
}
