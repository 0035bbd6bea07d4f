package stateController

import (
	"context"

	"spendlens/internal/events"
	"spendlens/internal/logger"
	"spendlens/internal/state"
)

type StateController struct {
	container *state.Container
	eventBus  *events.EventBus
	log       logger.Logger
}

type StateControllerInterface interface {
	Get(key string) (any, bool)
	Snapshot() map[string]any
	Set(key string, value any)
	Update(key string, partial map[string]any)
	Clear(ctx context.Context)
	Export() map[string]any
	Import(data map[string]any)
}

func New(container *state.Container, eventBus *events.EventBus) StateControllerInterface {
	controller := &StateController{
		container: container,
		eventBus:  eventBus,
		log:       logger.New("stateController"),
	}

	// Relay every state change onto the broadcast channel so connected
	// clients stay in sync
	container.Subscribe(state.Wildcard, func(newValue, oldValue any, key string) {
		if err := eventBus.PublishStateChange(key, newValue); err != nil {
			controller.log.Function("relay").Warn("failed to publish state change", "key", key, "error", err)
		}
	})

	return controller
}

func (sc *StateController) Get(key string) (any, bool) {
	return sc.container.Get(key)
}

func (sc *StateController) Snapshot() map[string]any {
	return sc.container.Export()
}

func (sc *StateController) Set(key string, value any) {
	sc.container.Set(key, value)
}

func (sc *StateController) Update(key string, partial map[string]any) {
	sc.container.Update(key, partial)
}

func (sc *StateController) Clear(ctx context.Context) {
	sc.container.Clear(ctx)
}

func (sc *StateController) Export() map[string]any {
	return sc.container.Export()
}

func (sc *StateController) Import(data map[string]any) {
	sc.container.Import(data)
}
