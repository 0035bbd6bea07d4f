package database

import (
	"context"
	"fmt"
	"time"

	"spendlens/config"
	"spendlens/internal/logger"

	"github.com/valkey-io/valkey-go"
)

type CacheClient = valkey.Client

type Cache struct {
	General  CacheClient
	State    CacheClient
	Progress CacheClient
	Events   CacheClient
}

// Valkey Database Index Organization
// Each database index provides logical separation for different cache categories
const (
	// GENERAL_CACHE_INDEX (DB 0) - General purpose caching
	// Miscellaneous cache operations, repository read caches
	GENERAL_CACHE_INDEX = iota

	// STATE_CACHE_INDEX (DB 1) - State container persistence
	// Holds the named-state snapshot written by the state container
	STATE_CACHE_INDEX

	// PROGRESS_CACHE_INDEX (DB 2) - Progress engine persistence
	// Holds the checkbox-state map and milestone marker
	PROGRESS_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 3) - Event-driven data
	// Pub/sub transport for progress and milestone notifications
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		log.Warn("cache database address or port not configured, storage will degrade to memory")
		return nil
	}

	var cacheDB Cache

	var err error
	cacheDB.General, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    GENERAL_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create general valkey client", err)
	}

	cacheDB.State, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    STATE_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create state valkey client", err)
	}

	cacheDB.Progress, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    PROGRESS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create progress valkey client", err)
	}

	cacheDB.Events, err = valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
			SelectDB:    EVENTS_CACHE_INDEX,
		},
	)
	if err != nil {
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset > 0 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var client CacheClient
	var dbName string

	switch index {
	case GENERAL_CACHE_INDEX:
		client = cacheDB.General
		dbName = "General"
	case STATE_CACHE_INDEX:
		client = cacheDB.State
		dbName = "State"
	case PROGRESS_CACHE_INDEX:
		client = cacheDB.Progress
		dbName = "Progress"
	case EVENTS_CACHE_INDEX:
		client = cacheDB.Events
		dbName = "Events"
	default:
		log.Warn("unknown cache database index, skipping reset", "index", index)
		return
	}

	if client == nil {
		return
	}

	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("failed to reset cache database", err, "cache", dbName)
		return
	}

	log.Info("cache database reset", "cache", dbName)
}
