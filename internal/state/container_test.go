package state

import (
	"context"
	"testing"
	"time"

	"spendlens/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) (*Container, *storage.Store, *FakeClock) {
	t.Helper()
	store := storage.New(nil, storage.Options{Namespace: "test_state_"})
	clock := NewFakeClock()
	container := New(store, clock, 500*time.Millisecond, DefaultState())
	container.Init(context.Background())
	return container, store, clock
}

func TestContainer_InitAppliesDefaults(t *testing.T) {
	container, _, _ := newTestContainer(t)

	section, ok := container.Get("currentSection")
	require.True(t, ok)
	assert.Equal(t, "overview", section)

	theme, ok := container.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "light", theme)
}

func TestContainer_InitPersistedStateWinsOverDefaults(t *testing.T) {
	store := storage.New(nil, storage.Options{Namespace: "test_state_"})
	require.True(t, store.Set(context.Background(), "state", map[string]any{
		"theme": "dark",
	}))

	container := New(store, NewFakeClock(), 0, DefaultState())
	container.Init(context.Background())

	theme, ok := container.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)

	// Defaults still fill the gaps
	section, ok := container.Get("currentSection")
	require.True(t, ok)
	assert.Equal(t, "overview", section)
}

func TestContainer_GetMissingKey(t *testing.T) {
	container, _, _ := newTestContainer(t)

	_, ok := container.Get("unknown")
	assert.False(t, ok)
}

func TestContainer_SetNotifiesSubscribersInOrder(t *testing.T) {
	container, _, _ := newTestContainer(t)

	var calls []string
	container.Subscribe("theme", func(newValue, oldValue any, key string) {
		calls = append(calls, "first")
		assert.Equal(t, "dark", newValue)
		assert.Equal(t, "light", oldValue)
		assert.Equal(t, "theme", key)
	})
	container.Subscribe("theme", func(newValue, oldValue any, key string) {
		calls = append(calls, "second")
	})
	container.Subscribe(Wildcard, func(newValue, oldValue any, key string) {
		calls = append(calls, "wildcard")
	})

	container.Set("theme", "dark")

	assert.Equal(t, []string{"first", "second", "wildcard"}, calls)
}

func TestContainer_SubscriberPanicDoesNotBlockOthers(t *testing.T) {
	container, _, _ := newTestContainer(t)

	secondCalled := false
	container.Subscribe("theme", func(newValue, oldValue any, key string) {
		panic("subscriber bug")
	})
	container.Subscribe("theme", func(newValue, oldValue any, key string) {
		secondCalled = true
	})

	assert.NotPanics(t, func() {
		container.Set("theme", "dark")
	})
	assert.True(t, secondCalled)
}

func TestContainer_Unsubscribe(t *testing.T) {
	container, _, _ := newTestContainer(t)

	calls := 0
	unsubscribe := container.Subscribe("theme", func(newValue, oldValue any, key string) {
		calls++
	})

	container.Set("theme", "dark")
	unsubscribe()
	container.Set("theme", "light")

	assert.Equal(t, 1, calls)
}

func TestContainer_DebounceCoalescesWrites(t *testing.T) {
	container, store, clock := newTestContainer(t)
	ctx := context.Background()

	container.Set("theme", "dark")
	clock.Advance(200 * time.Millisecond)
	container.Set("theme", "solarized")
	clock.Advance(200 * time.Millisecond)

	// Still inside the window of the second Set: nothing persisted yet
	persisted, _ := store.Get(ctx, "state").(map[string]any)
	assert.Nil(t, persisted)

	clock.Advance(400 * time.Millisecond)

	persisted, ok := store.Get(ctx, "state").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "solarized", persisted["theme"])
}

func TestContainer_InMemoryReadConsistentBeforePersist(t *testing.T) {
	container, _, _ := newTestContainer(t)

	container.Set("theme", "dark")

	theme, ok := container.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
}

func TestContainer_UpdateShallowMerges(t *testing.T) {
	container, _, _ := newTestContainer(t)

	container.Set("filters", map[string]any{"vendor": "acme", "year": 2024})
	container.Update("filters", map[string]any{"year": 2025})

	value, ok := container.Get("filters")
	require.True(t, ok)
	merged := value.(map[string]any)
	assert.Equal(t, "acme", merged["vendor"])
	assert.Equal(t, 2025, merged["year"])
}

func TestContainer_UpdateMissingKeyTreatedAsEmpty(t *testing.T) {
	container, _, _ := newTestContainer(t)

	container.Update("filters", map[string]any{"vendor": "acme"})

	value, ok := container.Get("filters")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"vendor": "acme"}, value)
}

func TestContainer_ClearSupersedesPendingWrite(t *testing.T) {
	container, store, clock := newTestContainer(t)
	ctx := context.Background()

	container.Set("theme", "dark")
	container.Clear(ctx)

	// The pending debounced write was cancelled; the cleared snapshot is
	// already durable and advancing the clock must not resurrect "dark"
	clock.Advance(time.Second)

	persisted, ok := store.Get(ctx, "state").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "light", persisted["theme"])

	theme, ok := container.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "light", theme)
}

func TestContainer_ExportImportRoundTrip(t *testing.T) {
	container, _, _ := newTestContainer(t)

	container.Set("theme", "dark")
	container.Set("currentSection", "data-quality")

	exported := container.Export()

	fresh, _, _ := newTestContainer(t)
	notified := map[string]bool{}
	fresh.Subscribe(Wildcard, func(newValue, oldValue any, key string) {
		notified[key] = true
	})
	fresh.Import(exported)

	theme, ok := fresh.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme)

	// Import goes through Set key by key, so each triggered a notification
	assert.True(t, notified["theme"])
	assert.True(t, notified["currentSection"])
}

func TestContainer_FlushWritesImmediately(t *testing.T) {
	container, store, _ := newTestContainer(t)
	ctx := context.Background()

	container.Set("theme", "dark")
	container.Flush(ctx)

	persisted, ok := store.Get(ctx, "state").(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dark", persisted["theme"])
}
