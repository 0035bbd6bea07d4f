package handlers

import (
	"spendlens/internal/app"
	"spendlens/internal/content"
	"spendlens/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type ChecklistHandler struct {
	Handler
	checklist *content.Checklist
}

func NewChecklistHandler(app app.App, router fiber.Router) *ChecklistHandler {
	return &ChecklistHandler{
		checklist: app.Checklist,
		Handler: Handler{
			log:        logger.New("handlers").File("checklist_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ChecklistHandler) Register() {
	h.router.Get("/checklist", h.getChecklist)
}

// getChecklist serves the SOP definition the UI renders its controls from
func (h *ChecklistHandler) getChecklist(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"checklist": h.checklist})
}
