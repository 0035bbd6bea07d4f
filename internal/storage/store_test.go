package storage

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) (*Store, Backend) {
	t.Helper()
	backend := newMemoryBackend()
	if opts.Namespace == "" {
		opts.Namespace = "test_"
	}
	return NewWithBackend(backend, opts), backend
}

func TestStore_SetAndGet_String(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	ok := store.Set(ctx, "theme", "dark")
	require.True(t, ok)

	assert.Equal(t, "dark", store.Get(ctx, "theme"))
}

func TestStore_SetAndGet_StructEncodesJSON(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	ok := store.Set(ctx, "prefs", map[string]any{"sidebar": true, "zoom": 1.5})
	require.True(t, ok)

	value := store.Get(ctx, "prefs")
	decoded, isMap := value.(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, true, decoded["sidebar"])
	assert.Equal(t, 1.5, decoded["zoom"])
}

func TestStore_Get_AbsentReturnsNil(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	assert.Nil(t, store.Get(context.Background(), "missing"))
}

func TestStore_Get_CorruptJSONReturnsNil(t *testing.T) {
	store, backend := newTestStore(t, Options{})
	ctx := context.Background()

	// Simulate a corrupt entry written by an earlier version
	require.NoError(t, backend.Set(ctx, "test_broken", `{"unterminated`))

	assert.Nil(t, store.Get(ctx, "broken"))
}

func TestStore_Set_RejectsOversizedValue(t *testing.T) {
	store, _ := newTestStore(t, Options{MaxValueBytes: 16})
	ctx := context.Background()

	assert.False(t, store.Set(ctx, "big", "this value is definitely longer than sixteen bytes"))
	assert.Nil(t, store.Get(ctx, "big"))
}

func TestStore_Namespacing(t *testing.T) {
	backend := newMemoryBackend()
	stateStore := NewWithBackend(backend, Options{Namespace: "state_"})
	progressStore := NewWithBackend(backend, Options{Namespace: "progress_"})
	ctx := context.Background()

	require.True(t, stateStore.Set(ctx, "cursor", "a"))
	require.True(t, progressStore.Set(ctx, "cursor", "b"))

	assert.Equal(t, "a", stateStore.Get(ctx, "cursor"))
	assert.Equal(t, "b", progressStore.Get(ctx, "cursor"))

	stateStore.Clear(ctx)
	assert.Nil(t, stateStore.Get(ctx, "cursor"))
	assert.Equal(t, "b", progressStore.Get(ctx, "cursor"))
}

func TestStore_KeysStripsNamespace(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "alpha", "1"))
	require.True(t, store.Set(ctx, "beta", "2"))

	assert.Equal(t, []string{"alpha", "beta"}, store.Keys(ctx))
}

func TestStore_HasAndRemove(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "key", "value"))
	assert.True(t, store.Has(ctx, "key"))

	store.Remove(ctx, "key")
	assert.False(t, store.Has(ctx, "key"))
}

func TestStore_GetWithAge_FreshEntry(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.SetWithTimestamp(ctx, "cached", "payload"))

	assert.Equal(t, "payload", store.GetWithAge(ctx, "cached", time.Minute))
}

func TestStore_GetWithAge_ExpiredEntryEvicted(t *testing.T) {
	store, backend := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "cached", "payload"))
	stale := strconv.FormatInt(time.Now().Add(-2*time.Hour).UnixMilli(), 10)
	require.NoError(t, backend.Set(ctx, "test_cached_timestamp", stale))

	assert.Nil(t, store.GetWithAge(ctx, "cached", time.Hour))
	assert.False(t, store.Has(ctx, "cached"))
}

func TestStore_GetWithAge_NoTimestampReturnsNil(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "plain", "payload"))

	assert.Nil(t, store.GetWithAge(ctx, "plain", time.Minute))
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, Options{})
	ctx := context.Background()

	require.True(t, store.Set(ctx, "theme", "dark"))
	require.True(t, store.Set(ctx, "flags", map[string]any{"f1": true, "f2": false}))

	exported := store.Export(ctx)
	store.Clear(ctx)
	require.Empty(t, store.Keys(ctx))

	count := store.Import(ctx, exported)

	assert.Equal(t, 2, count)
	assert.Equal(t, "dark", store.Get(ctx, "theme"))
	restored, isMap := store.Get(ctx, "flags").(map[string]any)
	require.True(t, isMap)
	assert.Equal(t, true, restored["f1"])
	assert.Equal(t, false, restored["f2"])
}

// quotaBackend rejects writes with ErrQuotaExceeded until allowed
type quotaBackend struct {
	Backend
	rejectWrites bool
}

func (b *quotaBackend) Set(ctx context.Context, key string, value string) error {
	if b.rejectWrites {
		b.rejectWrites = false
		return ErrQuotaExceeded
	}
	return b.Backend.Set(ctx, key, value)
}

func TestStore_QuotaEvictsOldestFifthThenRetries(t *testing.T) {
	inner := newMemoryBackend()
	backend := &quotaBackend{Backend: inner}
	store := NewWithBackend(backend, Options{Namespace: "test_"})
	ctx := context.Background()

	// 10 timestamped entries, entry0 oldest
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("entry%d", i)
		require.NoError(t, inner.Set(ctx, "test_"+key, "payload"))
		ts := strconv.FormatInt(base.Add(time.Duration(i)*time.Minute).UnixMilli(), 10)
		require.NoError(t, inner.Set(ctx, "test_"+key+"_timestamp", ts))
	}

	backend.rejectWrites = true
	ok := store.Set(ctx, "checkbox_states", map[string]any{"f1": true})

	require.True(t, ok, "write must succeed after one eviction retry")
	assert.NotNil(t, store.Get(ctx, "checkbox_states"))

	// Exactly the two oldest entries were evicted
	assert.False(t, store.Has(ctx, "entry0"))
	assert.False(t, store.Has(ctx, "entry1"))
	for i := 2; i < 10; i++ {
		assert.True(t, store.Has(ctx, fmt.Sprintf("entry%d", i)), "entry%d should survive", i)
	}
}

func TestStore_QuotaWithNoTimestampedEntriesFails(t *testing.T) {
	inner := newMemoryBackend()
	backend := &quotaBackend{Backend: inner, rejectWrites: true}
	store := NewWithBackend(backend, Options{Namespace: "test_"})

	// Nothing evictable, but the retry itself succeeds since the fake
	// backend only rejects once
	assert.True(t, store.Set(context.Background(), "key", "value"))
}

func TestStore_NilClientDegradesToMemory(t *testing.T) {
	store := New(nil, Options{Namespace: "test_"})
	ctx := context.Background()

	assert.True(t, store.Degraded())
	assert.True(t, store.Set(ctx, "key", "value"))
	assert.Equal(t, "value", store.Get(ctx, "key"))
}
