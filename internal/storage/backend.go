package storage

import (
	"context"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/valkey-io/valkey-go"
)

var (
	// ErrQuotaExceeded is returned by a backend when the underlying store
	// rejects a write for lack of space.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrValueTooLarge is returned when a serialized value exceeds the
	// configured per-entry maximum.
	ErrValueTooLarge = errors.New("value exceeds maximum size")
)

// Backend is the raw string key/value layer the Store adapter sits on.
// Implementations must treat a missing key as (value "", found false, nil).
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
}

// valkeyBackend persists entries in a valkey database
type valkeyBackend struct {
	client valkey.Client
}

func newValkeyBackend(client valkey.Client) *valkeyBackend {
	return &valkeyBackend{client: client}
}

func (b *valkeyBackend) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := b.client.Do(ctx, b.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return data, true, nil
}

func (b *valkeyBackend) Set(ctx context.Context, key string, value string) error {
	err := b.client.Do(ctx, b.client.B().Set().Key(key).Value(value).Build()).Error()
	if err != nil && isOOMError(err) {
		return ErrQuotaExceeded
	}
	return err
}

func (b *valkeyBackend) Delete(ctx context.Context, key string) error {
	return b.client.Do(ctx, b.client.B().Del().Key(key).Build()).Error()
}

func (b *valkeyBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := b.client.Do(ctx, b.client.B().Keys().Pattern(prefix+"*").Build()).AsStrSlice()
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *valkeyBackend) Ping(ctx context.Context) error {
	return b.client.Do(ctx, b.client.B().Ping().Build()).Error()
}

// isOOMError detects valkey's out-of-memory write rejection
func isOOMError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "OOM") ||
		strings.Contains(msg, "maxmemory")
}

// memoryBackend is the in-process degradation target used when valkey is
// unavailable. Bounded so a long-lived degraded process cannot grow without
// limit; entries past the bound are discarded oldest-first. Never durable.
type memoryBackend struct {
	entries *lru.Cache[string, string]
}

const memoryBackendMaxEntries = 4096

func newMemoryBackend() *memoryBackend {
	cache, _ := lru.New[string, string](memoryBackendMaxEntries)
	return &memoryBackend{entries: cache}
}

func (b *memoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := b.entries.Get(key)
	return value, ok, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value string) error {
	b.entries.Add(key, value)
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.entries.Remove(key)
	return nil
}

func (b *memoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for _, key := range b.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (b *memoryBackend) Ping(_ context.Context) error {
	return nil
}
