package handlers

import (
	"errors"

	"spendlens/internal/app"
	"spendlens/internal/logger"
	"spendlens/internal/progress"

	progressController "spendlens/internal/controllers/progress"

	"github.com/gofiber/fiber/v2"
)

type ProgressHandler struct {
	Handler
	controller progressController.ProgressControllerInterface
}

type syncRequest struct {
	IDs []string `json:"ids"`
}

type toggleRequest struct {
	ID string `json:"id"`
}

type resetRequest struct {
	Confirm bool     `json:"confirm"`
	IDs     []string `json:"ids,omitempty"`
}

type importProgressRequest struct {
	Data map[string]bool `json:"data"`
}

func NewProgressHandler(app app.App, router fiber.Router) *ProgressHandler {
	return &ProgressHandler{
		controller: app.Controllers.Progress,
		Handler: Handler{
			log:        logger.New("handlers").File("progress_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ProgressHandler) Register() {
	group := h.router.Group("/progress", h.middleware.RequireSession())

	group.Get("/", h.getProgress)
	group.Post("/sync", h.sync)
	group.Post("/toggle", h.toggle)
	group.Post("/reset", h.reset)
	group.Get("/export", h.exportProgress)
	group.Post("/import", h.importProgress)
	group.Get("/timeline", h.timeline)
	group.Get("/milestones", h.milestones)
}

func (h *ProgressHandler) getProgress(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"progress": h.controller.GetStats()})
}

func (h *ProgressHandler) sync(c *fiber.Ctx) error {
	var req syncRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ids is required",
		})
	}

	stats := h.controller.Sync(c.UserContext(), req.IDs)
	return c.JSON(fiber.Map{"progress": stats})
}

func (h *ProgressHandler) toggle(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id is required",
		})
	}

	stats := h.controller.Toggle(c.UserContext(), req.ID)
	return c.JSON(fiber.Map{"progress": stats})
}

// reset clears all progress, or only the supplied ids when present. The
// confirm flag must be explicit; a bare POST is rejected.
func (h *ProgressHandler) reset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var (
		stats progress.ProgressState
		err   error
	)
	if len(req.IDs) > 0 {
		stats, err = h.controller.ResetScoped(c.UserContext(), req.IDs, req.Confirm)
	} else {
		stats, err = h.controller.Reset(c.UserContext(), req.Confirm)
	}

	if err != nil {
		if errors.Is(err, progress.ErrConfirmationRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Reset requires confirm: true",
			})
		}
		_ = h.log.Function("reset").Err("reset failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Reset failed",
		})
	}

	return c.JSON(fiber.Map{"progress": stats})
}

func (h *ProgressHandler) exportProgress(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.controller.Export()})
}

func (h *ProgressHandler) importProgress(c *fiber.Ctx) error {
	var req importProgressRequest
	if err := c.BodyParser(&req); err != nil || req.Data == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "data is required",
		})
	}

	stats, applied := h.controller.Import(c.UserContext(), req.Data)
	return c.JSON(fiber.Map{
		"progress": stats,
		"applied":  applied,
	})
}

func (h *ProgressHandler) timeline(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")

	snapshots, err := h.controller.Timeline(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load timeline",
		})
	}

	return c.JSON(fiber.Map{"timeline": snapshots})
}

func (h *ProgressHandler) milestones(c *fiber.Ctx) error {
	limit := c.QueryInt("limit")

	milestones, err := h.controller.RecentMilestones(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load milestones",
		})
	}

	return c.JSON(fiber.Map{"milestones": milestones})
}
