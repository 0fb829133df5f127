package api

import (
	"errors"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/flow"
	"github.com/bobby-s-dev/aviationweather/internal/models"
	"github.com/bobby-s-dev/aviationweather/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SchedulerStatus interface {
	GetStatus() map[string]interface{}
}

type Handler struct {
	manager   *services.EntryManager
	scheduler SchedulerStatus
	logger    *zap.Logger
	startTime time.Time
}

func NewHandler(manager *services.EntryManager, scheduler SchedulerStatus, logger *zap.Logger) *Handler {
	return &Handler{
		manager:   manager,
		scheduler: scheduler,
		logger:    logger,
		startTime: time.Now(),
	}
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
		"entries":   len(h.manager.Entries()),
	})
}

// ShowUserStep handles GET /api/v1/flow/user
func (h *Handler) ShowUserStep(c *fiber.Ctx) error {
	return c.JSON(flow.New(h.manager).StepUser(nil))
}

// SubmitUserStep handles POST /api/v1/flow/user
func (h *Handler) SubmitUserStep(c *fiber.Ctx) error {
	input := map[string]string{}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid form data",
			"details": err.Error(),
		})
	}

	result := flow.New(h.manager).StepUser(input)
	if result.Type != flow.ResultTypeCreateEntry {
		return c.JSON(result)
	}

	entry, err := h.manager.CreateEntry(c.Context(), result, models.SourceUser)
	if errors.Is(err, services.ErrAlreadyConfigured) {
		return c.JSON(flow.Result{Type: flow.ResultTypeAbort, Reason: flow.ReasonAlreadyConfigured})
	}
	if err != nil {
		h.logger.Error("Failed to create config entry",
			zap.String("unique_id", result.UniqueID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to create config entry",
			"details": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"result": result,
		"entry":  entry,
	})
}

// ListEntries handles GET /api/v1/entries
func (h *Handler) ListEntries(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"entries": h.manager.Entries(),
	})
}

// GetEntry handles GET /api/v1/entries/:id
func (h *Handler) GetEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	entry, err := h.manager.Entry(id)
	if err != nil {
		return entryError(c, err)
	}

	response := fiber.Map{"entry": entry}
	if coordinator, err := h.manager.Coordinator(id); err == nil {
		response["coordinator"] = coordinator.Status()
	}
	return c.JSON(response)
}

// DeleteEntry handles DELETE /api/v1/entries/:id
func (h *Handler) DeleteEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.manager.RemoveEntry(id); err != nil {
		return entryError(c, err)
	}

	h.logger.Info("Config entry deleted", zap.String("entry_id", id))
	return c.JSON(fiber.Map{"success": true})
}

// RefreshEntry handles POST /api/v1/entries/:id/refresh
func (h *Handler) RefreshEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	coordinator, err := h.manager.Coordinator(id)
	if err != nil {
		return entryError(c, err)
	}

	if err := h.manager.Refresh(c.Context(), id); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":       "Failed to refresh METAR",
			"details":     err.Error(),
			"coordinator": coordinator.Status(),
		})
	}

	return c.JSON(fiber.Map{"coordinator": coordinator.Status()})
}

// GetSensors handles GET /api/v1/entries/:id/sensors
func (h *Handler) GetSensors(c *fiber.Ctx) error {
	states, err := h.manager.Sensors(c.Params("id"))
	if err != nil {
		return entryError(c, err)
	}
	return c.JSON(fiber.Map{"sensors": states})
}

// GetScheduler handles GET /api/v1/scheduler
func (h *Handler) GetScheduler(c *fiber.Ctx) error {
	return c.JSON(h.scheduler.GetStatus())
}

func entryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrEntryNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Config entry not found",
		})
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error":   "Config entry not available",
		"details": err.Error(),
	})
}
