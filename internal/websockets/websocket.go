package websockets

import (
	"time"

	"spendlens/config"
	"spendlens/internal/events"
	"spendlens/internal/logger"
	"spendlens/internal/services"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING      = "ping"
	MESSAGE_TYPE_PONG      = "pong"
	MESSAGE_TYPE_BROADCAST = "broadcast"
	MESSAGE_TYPE_ERROR     = "error"

	PING_INTERVAL     = 30 * time.Second
	PONG_TIMEOUT      = 60 * time.Second
	WRITE_TIMEOUT     = 10 * time.Second
	MAX_MESSAGE_SIZE  = 64 * 1024
	SEND_CHANNEL_SIZE = 64
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Action    string         `json:"action,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	SessionID  uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message
}

type Manager struct {
	hub      *Hub
	config   config.Config
	log      logger.Logger
	eventBus *events.EventBus
	sessions *services.SessionService
}

func New(
	eventBus *events.EventBus,
	sessions *services.SessionService,
	config config.Config,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			broadcast:  make(chan Message),
			register:   make(chan *Client),
			unregister: make(chan *Client),
			clients:    make(map[string]*Client),
		},
		config:   config,
		log:      log,
		eventBus: eventBus,
		sessions: sessions,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	go manager.subscribeToBroadcastEvents()

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		SessionID:  uuid.Nil,
		Connection: c,
		Manager:    m,
		Status:     STATUS_UNAUTHENTICATED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	if err := client.sendAuthRequest(); err != nil {
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	m.hub.register <- client
	client.startAuthTimeout()

	defer func() {
		log.Debug("Client disconnected", "clientID", clientID)
		m.hub.unregister <- client
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
	}()

	go client.readPump()
	client.writePump()
}

func (m *Manager) BroadcastMessage(message Message) {
	log := m.log.Function("BroadcastMessage")

	select {
	case m.hub.broadcast <- message:
	default:
		log.Warn("Broadcast channel is full, dropping message", "messageID", message.ID)
	}
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		err := c.Connection.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			break
		}

		message.ID = uuid.New().String()
		message.Timestamp = time.Now()

		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if c.Status == STATUS_UNAUTHENTICATED {
		c.handleUnauthenticatedMessage(message)
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.send <- Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_PONG,
			Channel:   "system",
			Timestamp: time.Now(),
		}
	default:
		log.Warn("Unknown message type", "type", message.Type, "clientID", c.ID)
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribeToBroadcastEvents relays event bus broadcasts (progress updates,
// milestones, state changes) to every authenticated client
func (m *Manager) subscribeToBroadcastEvents() {
	log := m.log.Function("subscribeToBroadcastEvents")

	err := m.eventBus.Subscribe(events.BROADCAST_CHANNEL, func(event events.Event) error {
		m.sendToAuthenticatedClients(Message{
			ID:        uuid.New().String(),
			Type:      string(event.Type),
			Channel:   "system",
			Action:    MESSAGE_TYPE_BROADCAST,
			Data:      event.Data,
			Timestamp: time.Now(),
		})
		return nil
	})
	if err != nil {
		log.Er("Failed to subscribe to broadcast events", err)
	}
}

func (m *Manager) sendToAuthenticatedClients(message Message) {
	log := m.log.Function("sendToAuthenticatedClients")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sent := 0
	for _, client := range m.hub.clients {
		if client.Status == STATUS_AUTHENTICATED {
			select {
			case client.send <- message:
				sent++
			default:
				log.Warn("Client send channel full, dropping message", "clientID", client.ID)
			}
		}
	}

	log.Debug("Message sent to authenticated clients", "messageID", message.ID, "clientCount", sent)
}
