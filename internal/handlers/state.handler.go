package handlers

import (
	"spendlens/internal/app"
	"spendlens/internal/logger"

	stateController "spendlens/internal/controllers/state"

	"github.com/gofiber/fiber/v2"
)

type StateHandler struct {
	Handler
	controller stateController.StateControllerInterface
}

type setStateRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type updateStateRequest struct {
	Key     string         `json:"key"`
	Partial map[string]any `json:"partial"`
}

type importStateRequest struct {
	Data map[string]any `json:"data"`
}

func NewStateHandler(app app.App, router fiber.Router) *StateHandler {
	return &StateHandler{
		controller: app.Controllers.State,
		Handler: Handler{
			log:        logger.New("handlers").File("state_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *StateHandler) Register() {
	group := h.router.Group("/state", h.middleware.RequireSession())

	group.Get("/", h.getState)
	group.Get("/key/:key", h.getKey)
	group.Post("/", h.setState)
	group.Patch("/", h.updateState)
	group.Delete("/", h.clearState)
	group.Get("/export", h.exportState)
	group.Post("/import", h.importState)
}

func (h *StateHandler) getState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"state": h.controller.Snapshot()})
}

func (h *StateHandler) getKey(c *fiber.Ctx) error {
	key := c.Params("key")

	value, ok := h.controller.Get(key)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Key not found",
		})
	}

	return c.JSON(fiber.Map{"key": key, "value": value})
}

func (h *StateHandler) setState(c *fiber.Ctx) error {
	var req setStateRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key is required",
		})
	}

	h.controller.Set(req.Key, req.Value)
	return c.JSON(fiber.Map{"key": req.Key, "value": req.Value})
}

func (h *StateHandler) updateState(c *fiber.Ctx) error {
	var req updateStateRequest
	if err := c.BodyParser(&req); err != nil || req.Key == "" || req.Partial == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key and partial are required",
		})
	}

	h.controller.Update(req.Key, req.Partial)

	value, _ := h.controller.Get(req.Key)
	return c.JSON(fiber.Map{"key": req.Key, "value": value})
}

func (h *StateHandler) clearState(c *fiber.Ctx) error {
	h.controller.Clear(c.UserContext())
	return c.JSON(fiber.Map{"state": h.controller.Snapshot()})
}

func (h *StateHandler) exportState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.controller.Export()})
}

func (h *StateHandler) importState(c *fiber.Ctx) error {
	var req importStateRequest
	if err := c.BodyParser(&req); err != nil || req.Data == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "data is required",
		})
	}

	h.controller.Import(req.Data)
	return c.JSON(fiber.Map{"state": h.controller.Snapshot()})
}
