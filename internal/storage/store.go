package storage

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/logger"

	"github.com/valkey-io/valkey-go"
)

const (
	DefaultMaxValueBytes = 5 * 1024 * 1024
	timestampSuffix      = "_timestamp"

	// quotaEvictionShare is the fraction of timestamped entries evicted
	// (oldest first) before a quota-rejected write is retried once
	quotaEvictionShare = 0.20
)

// Options configures a Store
type Options struct {
	// Namespace is prepended to every key. Stores sharing a backend must
	// use disjoint namespaces.
	Namespace string

	// MaxValueBytes rejects serialized values larger than this
	// (DefaultMaxValueBytes when zero)
	MaxValueBytes int
}

// Store is a namespaced string/JSON key-value adapter. No operation returns
// an error to the caller: failures are logged and degrade to nil or false.
// When the valkey client is unavailable at construction the store falls back
// to a bounded in-process map and persistence becomes best-effort.
type Store struct {
	backend   Backend
	namespace string
	maxBytes  int
	degraded  bool
	log       logger.Logger
}

// New builds a Store over the given valkey client. A nil or unreachable
// client degrades to the in-memory backend, logged once.
func New(client valkey.Client, opts Options) *Store {
	log := logger.New("storage").With("namespace", opts.Namespace)

	store := &Store{
		namespace: opts.Namespace,
		maxBytes:  opts.MaxValueBytes,
		log:       log,
	}
	if store.maxBytes <= 0 {
		store.maxBytes = DefaultMaxValueBytes
	}

	if client == nil {
		log.Warn("valkey client not configured, using in-memory fallback store")
		store.backend = newMemoryBackend()
		store.degraded = true
		return store
	}

	backend := newValkeyBackend(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := backend.Ping(ctx); err != nil {
		log.Er("valkey unavailable, using in-memory fallback store", err)
		store.backend = newMemoryBackend()
		store.degraded = true
		return store
	}

	store.backend = backend
	return store
}

// NewWithBackend builds a Store over an explicit backend. Used by tests and
// by callers that already hold a Backend.
func NewWithBackend(backend Backend, opts Options) *Store {
	store := &Store{
		backend:   backend,
		namespace: opts.Namespace,
		maxBytes:  opts.MaxValueBytes,
		log:       logger.New("storage").With("namespace", opts.Namespace),
	}
	if store.maxBytes <= 0 {
		store.maxBytes = DefaultMaxValueBytes
	}
	return store
}

// Degraded reports whether the store fell back to the in-memory backend
func (s *Store) Degraded() bool {
	return s.degraded
}

// Get returns the stored value for key. Values that look like JSON object or
// array literals are decoded; anything else comes back as the raw string.
// Absent keys and decode failures both return nil.
func (s *Store) Get(ctx context.Context, key string) any {
	log := s.log.Function("Get")

	raw, found, err := s.backend.Get(ctx, s.namespace+key)
	if err != nil {
		log.Er("failed to read key", err, "key", key)
		return nil
	}
	if !found {
		return nil
	}

	return decodeValue(raw, key, log)
}

// Set stores value under key, JSON-encoding non-string values. Returns false
// when the value is too large, cannot be serialized, or the backend rejects
// the write even after the one-time quota eviction retry.
func (s *Store) Set(ctx context.Context, key string, value any) bool {
	log := s.log.Function("Set")

	raw, err := encodeValue(value)
	if err != nil {
		log.Er("failed to serialize value", err, "key", key)
		return false
	}

	if len(raw) > s.maxBytes {
		log.Er("value exceeds maximum size", ErrValueTooLarge,
			"key", key,
			"size", len(raw),
			"maxBytes", s.maxBytes,
		)
		return false
	}

	err = s.backend.Set(ctx, s.namespace+key, raw)
	if err == nil {
		return true
	}

	if err != ErrQuotaExceeded {
		log.Er("failed to write key", err, "key", key)
		return false
	}

	// Quota rejection: evict oldest timestamped entries, retry exactly once
	evicted := s.evictOldest(ctx)
	log.Warn("storage quota exceeded, evicted oldest entries and retrying",
		"key", key,
		"evicted", evicted,
	)

	if err := s.backend.Set(ctx, s.namespace+key, raw); err != nil {
		log.Er("retry write failed after eviction", err, "key", key)
		return false
	}
	return true
}

// Remove deletes key and its timestamp companion if present
func (s *Store) Remove(ctx context.Context, key string) {
	log := s.log.Function("Remove")

	if err := s.backend.Delete(ctx, s.namespace+key); err != nil {
		log.Er("failed to remove key", err, "key", key)
	}
	if err := s.backend.Delete(ctx, s.namespace+key+timestampSuffix); err != nil {
		log.Er("failed to remove timestamp companion", err, "key", key)
	}
}

// Clear removes every entry under the store's namespace
func (s *Store) Clear(ctx context.Context) {
	log := s.log.Function("Clear")

	keys, err := s.backend.Keys(ctx, s.namespace)
	if err != nil {
		log.Er("failed to list keys for clear", err)
		return
	}

	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			log.Er("failed to delete key during clear", err, "key", key)
		}
	}
}

// Keys lists all keys under the namespace with the namespace stripped
func (s *Store) Keys(ctx context.Context) []string {
	log := s.log.Function("Keys")

	raw, err := s.backend.Keys(ctx, s.namespace)
	if err != nil {
		log.Er("failed to list keys", err)
		return nil
	}

	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		keys = append(keys, strings.TrimPrefix(key, s.namespace))
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key exists
func (s *Store) Has(ctx context.Context, key string) bool {
	log := s.log.Function("Has")

	_, found, err := s.backend.Get(ctx, s.namespace+key)
	if err != nil {
		log.Er("failed to check key", err, "key", key)
		return false
	}
	return found
}

// SetWithTimestamp stores value and a companion entry recording the write
// time, enabling age-based expiry through GetWithAge
func (s *Store) SetWithTimestamp(ctx context.Context, key string, value any) bool {
	if !s.Set(ctx, key, value) {
		return false
	}

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.Set(ctx, key+timestampSuffix, now)
}

// GetWithAge returns the value for key unless its companion timestamp shows
// it older than maxAge, in which case the entry is evicted and nil returned
func (s *Store) GetWithAge(ctx context.Context, key string, maxAge time.Duration) any {
	log := s.log.Function("GetWithAge")

	tsRaw, found, err := s.backend.Get(ctx, s.namespace+key+timestampSuffix)
	if err != nil || !found {
		if err != nil {
			log.Er("failed to read timestamp", err, "key", key)
		}
		return nil
	}

	writtenMs, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		log.Er("invalid timestamp entry", err, "key", key, "raw", tsRaw)
		s.Remove(ctx, key)
		return nil
	}

	age := time.Since(time.UnixMilli(writtenMs))
	if age > maxAge {
		log.Debug("entry expired, evicting", "key", key, "age", age.String())
		s.Remove(ctx, key)
		return nil
	}

	return s.Get(ctx, key)
}

// Export dumps every namespaced entry as a plain map
func (s *Store) Export(ctx context.Context) map[string]any {
	log := s.log.Function("Export")

	dump := make(map[string]any)
	raw, err := s.backend.Keys(ctx, s.namespace)
	if err != nil {
		log.Er("failed to list keys for export", err)
		return dump
	}

	for _, fullKey := range raw {
		value, found, err := s.backend.Get(ctx, fullKey)
		if err != nil || !found {
			continue
		}
		key := strings.TrimPrefix(fullKey, s.namespace)
		dump[key] = decodeValue(value, key, log)
	}
	return dump
}

// Import restores entries from an Export dump, returning the count of
// successful writes
func (s *Store) Import(ctx context.Context, data map[string]any) int {
	count := 0
	for key, value := range data {
		if s.Set(ctx, key, value) {
			count++
		}
	}
	return count
}

type timestampedEntry struct {
	key       string // namespaced data key
	writtenMs int64
}

// evictOldest drops the oldest quotaEvictionShare of timestamped entries,
// returning how many data entries were removed
func (s *Store) evictOldest(ctx context.Context) int {
	log := s.log.Function("evictOldest")

	keys, err := s.backend.Keys(ctx, s.namespace)
	if err != nil {
		log.Er("failed to list keys for eviction", err)
		return 0
	}

	var entries []timestampedEntry
	for _, key := range keys {
		if !strings.HasSuffix(key, timestampSuffix) {
			continue
		}
		raw, found, err := s.backend.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		writtenMs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, timestampedEntry{
			key:       strings.TrimSuffix(key, timestampSuffix),
			writtenMs: writtenMs,
		})
	}

	if len(entries) == 0 {
		return 0
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].writtenMs < entries[j].writtenMs
	})

	evictCount := int(math.Ceil(float64(len(entries)) * quotaEvictionShare))
	evicted := 0
	for _, entry := range entries[:evictCount] {
		if err := s.backend.Delete(ctx, entry.key); err != nil {
			log.Er("failed to evict entry", err, "key", entry.key)
			continue
		}
		if err := s.backend.Delete(ctx, entry.key+timestampSuffix); err != nil {
			log.Er("failed to evict timestamp companion", err, "key", entry.key)
		}
		evicted++
	}
	return evicted
}

func encodeValue(value any) (string, error) {
	if str, ok := value.(string); ok {
		return str, nil
	}
	bytes, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// decodeValue parses raw as JSON when it looks like an object or array
// literal, otherwise returns it as a plain string. Decode failures are
// treated as absent values.
func decodeValue(raw string, key string, log logger.Logger) any {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return raw
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			log.Er("failed to decode stored JSON, treating as absent", err, "key", key)
			return nil
		}
		return decoded
	}
	return raw
}
