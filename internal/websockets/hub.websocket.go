package websockets

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_AUTHENTICATED
	STATUS_CLOSED
)

type Hub struct {
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			func() {
				defer func() {
					// send may already be closed for a client
					// unregistered from both pumps
					_ = recover()
				}()
				close(client.send)
			}()
			m.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message, m)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	m.hub.clients[client.ID] = client

	m.log.Function("registerClient").Debug("Client registered", "clientID", client.ID, "status", client.Status)
}

func (m *Manager) unregisterClient(client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	delete(m.hub.clients, client.ID)

	m.log.Function("unregisterClient").Debug("Client unregistered", "clientID", client.ID, "sessionID", client.SessionID)
}

func (h *Hub) broadcastMessage(message Message, m *Manager) {
	log := m.log.Function("broadcastMessage")

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	sentCount := 0
	for clientID, client := range h.clients {
		if client.Status != STATUS_AUTHENTICATED {
			continue
		}

		select {
		case client.send <- message:
			sentCount++
		default:
			go func(c *Client, cID string, msg Message) {
				select {
				case c.send <- msg:
				case <-time.After(5 * time.Second):
					_ = log.Error("Client too slow, disconnecting", "clientID", cID)
					m.hub.unregister <- c
				}
			}(client, clientID, message)
		}
	}

	log.Debug("Broadcast complete", "messageID", message.ID, "sentTo", sentCount, "totalClients", len(h.clients))
}

// SendToSession delivers a message to every connection belonging to one
// session
func (m *Manager) SendToSession(sessionID uuid.UUID, message Message) {
	log := m.log.Function("SendToSession")

	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	sent := 0
	for _, client := range m.hub.clients {
		if client.Status == STATUS_AUTHENTICATED && client.SessionID == sessionID {
			select {
			case client.send <- message:
				sent++
			default:
				log.Warn("Client send channel full, dropping message", "clientID", client.ID)
			}
		}
	}

	if sent == 0 {
		log.Debug("No connections found for session", "sessionID", sessionID)
	}
}

// ClientCount returns the number of connected clients
func (m *Manager) ClientCount() int {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()
	return len(m.hub.clients)
}
