package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"spendlens/internal/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	BROADCAST_CHANNEL Channel = "broadcast"
	SEND_CHANNEL      Channel = "send"
)

type MessageType string

const (
	PING               MessageType = "ping"
	PONG               MessageType = "pong"
	ERROR              MessageType = "error"
	AUTH_REQUEST       MessageType = "auth_request"
	AUTH_SUCCESS       MessageType = "auth_success"
	AUTH_FAILURE       MessageType = "auth_failure"
	PROGRESS_UPDATED   MessageType = "progress_updated"
	MILESTONE_REACHED  MessageType = "milestone_reached"
	STATE_CHANGED      MessageType = "state_changed"
	SESSION_CREATED    MessageType = "session_created"
	SESSION_EXPIRED    MessageType = "session_expired"
	CHECKLIST_RELOADED MessageType = "checklist_reloaded"
)

type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	SessionID *uuid.UUID     `json:"sessionId,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventHandler func(event Event) error

// EventBus fans events out to local subscribers and, when a valkey client is
// available, mirrors them over pub/sub so every instance sees them. With no
// client the bus still works process-locally.
type EventBus struct {
	client    valkey.Client
	logger    logger.Logger
	handlers  map[Channel][]EventHandler
	listening map[Channel]bool
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(client valkey.Client) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:    client,
		logger:    logger.New("EventBus"),
		handlers:  make(map[Channel][]EventHandler),
		listening: make(map[Channel]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	if eb.client == nil {
		eb.notifyLocalHandlers(channel, event)
		return nil
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		// Local subscribers still get the event
		eb.notifyLocalHandlers(channel, event)
		return log.Err("failed to publish event to valkey", err, "channel", channel, "eventID", event.ID)
	}

	log.Debug("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)

	eb.notifyLocalHandlers(channel, event)

	return nil
}

func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	firstHandler := !eb.listening[channel]
	if firstHandler {
		eb.listening[channel] = true
	}
	eb.mutex.Unlock()

	log.Info("Handler subscribed to channel", "channel", channel)

	// One valkey listener per channel regardless of handler count
	if firstHandler && eb.client != nil {
		go eb.listenToChannel(channel)
	}

	return nil
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	handlers := eb.handlers[channel]
	eb.mutex.RUnlock()

	for i, handler := range handlers {
		go func(h EventHandler, handlerIndex int) {
			if err := h(event); err != nil {
				log.Er("handler failed", err, "channel", channel, "eventID", event.ID, "handlerIndex", handlerIndex)
			}
		}(handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel, "message", msg.Message)
				return
			}
			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	eb.cancel()
	eb.logger.Function("Close").Info("EventBus closed")
	return nil
}

// PublishProgressUpdate broadcasts the latest derived progress so connected
// clients can rerender without polling
func (eb *EventBus) PublishProgressUpdate(stats any) error {
	return eb.Publish(BROADCAST_CHANNEL, Event{
		Type: PROGRESS_UPDATED,
		Data: map[string]any{"progress": stats},
	})
}

// PublishMilestone broadcasts a milestone crossing
func (eb *EventBus) PublishMilestone(threshold int, stats any) error {
	return eb.Publish(BROADCAST_CHANNEL, Event{
		Type: MILESTONE_REACHED,
		Data: map[string]any{
			"threshold": threshold,
			"progress":  stats,
		},
	})
}

// PublishStateChange broadcasts a state container key change
func (eb *EventBus) PublishStateChange(key string, value any) error {
	return eb.Publish(BROADCAST_CHANNEL, Event{
		Type: STATE_CHANGED,
		Data: map[string]any{
			"key":   key,
			"value": value,
		},
	})
}
