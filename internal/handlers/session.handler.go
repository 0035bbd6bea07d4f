package handlers

import (
	"spendlens/internal/app"
	"spendlens/internal/logger"
	"spendlens/internal/services"

	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	Handler
	sessions *services.SessionService
}

func NewSessionHandler(app app.App, router fiber.Router) *SessionHandler {
	return &SessionHandler{
		sessions: app.SessionService,
		Handler: Handler{
			log:        logger.New("handlers").File("session_handler"),
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *SessionHandler) Register() {
	h.router.Post("/session", h.createSession)
}

// createSession issues an anonymous session token for the API and websocket
func (h *SessionHandler) createSession(c *fiber.Ctx) error {
	log := h.log.Function("createSession")

	session, err := h.sessions.Issue()
	if err != nil {
		_ = log.Err("failed to issue session", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": session,
	})
}
