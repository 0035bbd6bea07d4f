package middleware

import (
	"strings"

	"spendlens/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionIDKey is the Fiber locals key for the authenticated session id
	SessionIDKey = "sessionID"
)

// RequireSession validates the bearer session token and stores the session
// id in the request context
func (m *Middleware) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := logger.New("middleware").TraceFromContext(c.UserContext()).Function("RequireSession")

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		token := tokenParts[1]
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}

		sessionID, err := m.sessions.Validate(token)
		if err != nil {
			log.Debug("session token rejected", "error", err.Error())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(SessionIDKey, sessionID)

		return c.Next()
	}
}

// GetSessionID extracts the authenticated session id from Fiber context
func GetSessionID(c *fiber.Ctx) uuid.UUID {
	sessionID, ok := c.Locals(SessionIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return sessionID
}
