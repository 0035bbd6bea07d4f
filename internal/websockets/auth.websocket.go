package websockets

import (
	"time"

	"github.com/google/uuid"
)

const (
	AUTH_REQUEST  = "auth_request"
	AUTH_RESPONSE = "auth_response"
	AUTH_SUCCESS  = "auth_success"
	AUTH_FAILURE  = "auth_failure"

	AUTH_HANDSHAKE_TIMEOUT = 10 * time.Second
)

// sendAuthRequest sends the initial authentication challenge to the client
func (c *Client) sendAuthRequest() error {
	log := c.Manager.log.Function("sendAuthRequest")

	authRequest := Message{
		ID:        uuid.New().String(),
		Type:      AUTH_REQUEST,
		Channel:   "system",
		Action:    "authenticate",
		Timestamp: time.Now(),
	}

	if err := c.Connection.WriteJSON(authRequest); err != nil {
		return log.Err("failed to send auth request", err, "clientID", c.ID)
	}

	return nil
}

// startAuthTimeout disconnects clients that never complete the handshake
func (c *Client) startAuthTimeout() {
	log := c.Manager.log.Function("startAuthTimeout")

	go func() {
		time.Sleep(AUTH_HANDSHAKE_TIMEOUT)
		if c.Status == STATUS_UNAUTHENTICATED {
			log.Warn("Client failed to authenticate within timeout, disconnecting",
				"clientID", c.ID,
				"timeout", AUTH_HANDSHAKE_TIMEOUT)

			authTimeout := Message{
				ID:        uuid.New().String(),
				Type:      AUTH_FAILURE,
				Channel:   "system",
				Action:    "authentication_timeout",
				Data:      map[string]any{"reason": "Authentication timeout"},
				Timestamp: time.Now(),
			}

			select {
			case c.send <- authTimeout:
				time.Sleep(100 * time.Millisecond)
			default:
			}

			if err := c.Connection.Close(); err != nil {
				log.Er("failed to close connection after auth timeout", err, "clientID", c.ID)
			}
		}
	}()
}

// handleAuthResponse validates the session token presented by the client
func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Status != STATUS_UNAUTHENTICATED {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		log.Warn("Invalid token in auth response", "clientID", c.ID)
		c.sendAuthFailure("Invalid token format")
		return
	}

	sessionID, err := c.Manager.sessions.Validate(token)
	if err != nil {
		log.Debug("WebSocket token validation failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("Authentication failed")
		return
	}

	c.Status = STATUS_AUTHENTICATED
	c.SessionID = sessionID

	log.Info("WebSocket client authenticated", "clientID", c.ID, "sessionID", sessionID)

	authSuccess := Message{
		ID:        uuid.New().String(),
		Type:      AUTH_SUCCESS,
		Channel:   "system",
		Action:    "authenticated",
		SessionID: sessionID.String(),
		Data:      map[string]any{"sessionId": sessionID.String()},
		Timestamp: time.Now(),
	}

	c.send <- authSuccess
}

// sendAuthFailure notifies the client and closes the connection
func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	authFailure := Message{
		ID:        uuid.New().String(),
		Type:      AUTH_FAILURE,
		Channel:   "system",
		Action:    "authentication_failed",
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	}

	c.send <- authFailure

	log.Debug("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = c.Connection.Close()
	}()
}

// handleUnauthenticatedMessage rejects traffic that arrives before the
// handshake completes
func (c *Client) handleUnauthenticatedMessage(message Message) {
	c.Manager.log.Function("handleUnauthenticatedMessage").
		Warn("Blocking message from unauthenticated client", "clientID", c.ID, "messageType", message.Type)

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      AUTH_FAILURE,
		Channel:   "system",
		Action:    "authentication_required",
		Data:      map[string]any{"reason": "Authentication required"},
		Timestamp: time.Now(),
	}
}
