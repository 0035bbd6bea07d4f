package state

import (
	"context"
	"sync"
	"time"

	"spendlens/internal/logger"
	"spendlens/internal/storage"
)

const (
	// persistKey is the single storage key holding the full state snapshot
	persistKey = "state"

	// Wildcard subscribes to every key
	Wildcard = "*"

	DefaultDebounce = 500 * time.Millisecond
)

// Subscriber receives the new value, the previous value, and the key that
// changed. Panics inside a subscriber are caught and logged; they never
// reach other subscribers or the caller of Set.
type Subscriber func(newValue, oldValue any, key string)

type subscription struct {
	id int
	fn Subscriber
}

// Container holds process-wide named state with change notification and
// debounced whole-snapshot persistence. In-memory reads are immediately
// consistent with the latest Set; only durable storage lags by at most the
// debounce window.
type Container struct {
	store    *storage.Store
	clock    Clock
	debounce time.Duration
	defaults map[string]any
	log      logger.Logger

	mu          sync.RWMutex
	state       map[string]any
	subscribers map[string][]subscription
	nextSubID   int
	pending     Timer
}

// DefaultState is the fixed default map applied for keys missing from the
// persisted snapshot
func DefaultState() map[string]any {
	return map[string]any{
		"currentSection":   "overview",
		"theme":            "light",
		"sidebarCollapsed": false,
	}
}

func New(store *storage.Store, clock Clock, debounce time.Duration, defaults map[string]any) *Container {
	if clock == nil {
		clock = NewClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if defaults == nil {
		defaults = DefaultState()
	}

	return &Container{
		store:       store,
		clock:       clock,
		debounce:    debounce,
		defaults:    defaults,
		log:         logger.New("state"),
		state:       make(map[string]any),
		subscribers: make(map[string][]subscription),
	}
}

// Init loads the persisted snapshot, then fills in defaults for any key not
// already present
func (c *Container) Init(ctx context.Context) {
	log := c.log.Function("Init")

	c.mu.Lock()
	defer c.mu.Unlock()

	if persisted, ok := c.store.Get(ctx, persistKey).(map[string]any); ok {
		for key, value := range persisted {
			c.state[key] = value
		}
		log.Info("Loaded persisted state", "keys", len(persisted))
	}

	applied := 0
	for key, value := range c.defaults {
		if _, exists := c.state[key]; !exists {
			c.state[key] = value
			applied++
		}
	}
	if applied > 0 {
		log.Info("Applied state defaults", "count", applied)
	}
}

// Get returns the value for key and whether it exists
func (c *Container) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.state[key]
	return value, ok
}

// Set updates key, synchronously notifies subscribers for that key followed
// by wildcard subscribers, then schedules a debounced persist of the whole
// snapshot. Rapid Sets within the window collapse into one write, which is
// why no context is taken: the durable write happens later on its own.
func (c *Container) Set(key string, value any) {
	c.mu.Lock()
	oldValue := c.state[key]
	c.state[key] = value
	subs := c.snapshotSubscribers(key)
	c.mu.Unlock()

	c.notify(subs, value, oldValue, key)
	c.schedulePersist()
}

// Update shallow-merges partial into the existing value at key, treating a
// missing or non-object value as empty, then delegates to Set
func (c *Container) Update(key string, partial map[string]any) {
	c.mu.RLock()
	existing, _ := c.state[key].(map[string]any)
	merged := make(map[string]any, len(existing)+len(partial))
	for k, v := range existing {
		merged[k] = v
	}
	c.mu.RUnlock()

	for k, v := range partial {
		merged[k] = v
	}

	c.Set(key, merged)
}

// Subscribe registers fn for changes to key (or Wildcard for all keys) and
// returns an unsubscribe function. Subscribers are called in registration
// order.
func (c *Container) Subscribe(key string, fn Subscriber) func() {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers[key] = append(c.subscribers[key], subscription{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		subs := c.subscribers[key]
		for i, sub := range subs {
			if sub.id == id {
				c.subscribers[key] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Clear wipes in-memory state and the persisted copy, reapplies defaults,
// and writes the default snapshot immediately so any pending debounced
// write is superseded
func (c *Container) Clear(ctx context.Context) {
	log := c.log.Function("Clear")

	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	oldState := c.state
	c.state = make(map[string]any, len(c.defaults))
	for key, value := range c.defaults {
		c.state[key] = value
	}

	type pendingNotify struct {
		subs     []subscription
		newValue any
		oldValue any
		key      string
	}
	var notifies []pendingNotify
	for key, value := range c.state {
		notifies = append(notifies, pendingNotify{
			subs:     c.snapshotSubscribers(key),
			newValue: value,
			oldValue: oldState[key],
			key:      key,
		})
	}
	snapshot := c.copyStateLocked()
	c.mu.Unlock()

	if !c.store.Set(ctx, persistKey, snapshot) {
		log.Warn("failed to persist cleared state")
	}

	for _, n := range notifies {
		c.notify(n.subs, n.newValue, n.oldValue, n.key)
	}

	log.Info("State cleared and defaults reapplied")
}

// Export returns a copy of the full state map
func (c *Container) Export() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.copyStateLocked()
}

// Import applies each entry through Set so every key triggers its own
// subscriber notifications
func (c *Container) Import(data map[string]any) {
	for key, value := range data {
		c.Set(key, value)
	}
}

// Flush forces any pending debounced persist to run now. Used on shutdown.
func (c *Container) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	snapshot := c.copyStateLocked()
	c.mu.Unlock()

	c.persist(ctx, snapshot)
}

func (c *Container) copyStateLocked() map[string]any {
	snapshot := make(map[string]any, len(c.state))
	for key, value := range c.state {
		snapshot[key] = value
	}
	return snapshot
}

func (c *Container) snapshotSubscribers(key string) []subscription {
	subs := make([]subscription, 0, len(c.subscribers[key])+len(c.subscribers[Wildcard]))
	subs = append(subs, c.subscribers[key]...)
	if key != Wildcard {
		subs = append(subs, c.subscribers[Wildcard]...)
	}
	return subs
}

func (c *Container) notify(subs []subscription, newValue, oldValue any, key string) {
	log := c.log.Function("notify")

	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("subscriber panicked", "key", key, "panic", r)
				}
			}()
			sub.fn(newValue, oldValue, key)
		}()
	}
}

func (c *Container) schedulePersist() {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pending = c.clock.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		c.pending = nil
		snapshot := c.copyStateLocked()
		c.mu.Unlock()

		c.persist(context.Background(), snapshot)
	})
	c.mu.Unlock()
}

func (c *Container) persist(ctx context.Context, snapshot map[string]any) {
	if !c.store.Set(ctx, persistKey, snapshot) {
		c.log.Function("persist").Warn("failed to persist state snapshot")
	}
}
