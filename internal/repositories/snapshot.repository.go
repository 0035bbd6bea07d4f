package repositories

import (
	"context"
	"time"

	"spendlens/internal/database"
	"spendlens/internal/logger"
	. "spendlens/internal/models"
)

const (
	LATEST_SNAPSHOT_CACHE_KEY    = "snapshot:latest"
	LATEST_SNAPSHOT_CACHE_EXPIRY = time.Hour
	DEFAULT_TIMELINE_LIMIT       = 100
)

type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *ProgressSnapshot) error
	GetLatest(ctx context.Context) (*ProgressSnapshot, error)
	GetTimeline(ctx context.Context, limit int) ([]ProgressSnapshot, error)
}

type snapshotRepository struct {
	db  database.DB
	log logger.Logger
}

func NewSnapshotRepository(db database.DB) SnapshotRepository {
	return &snapshotRepository{
		db:  db,
		log: logger.New("snapshotRepository"),
	}
}

func (r *snapshotRepository) Create(ctx context.Context, snapshot *ProgressSnapshot) error {
	log := r.log.Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(snapshot).Error; err != nil {
		return log.Err("failed to create progress snapshot", err, "source", snapshot.Source)
	}

	if err := r.cacheLatest(ctx, snapshot); err != nil {
		log.Warn("failed to cache latest snapshot", "error", err)
	}

	return nil
}

func (r *snapshotRepository) GetLatest(ctx context.Context) (*ProgressSnapshot, error) {
	log := r.log.Function("GetLatest")

	var snapshot ProgressSnapshot
	if r.db.Cache.General != nil {
		found, err := database.NewCacheBuilder(r.db.Cache.General, LATEST_SNAPSHOT_CACHE_KEY).
			WithContext(ctx).
			Get(&snapshot)
		if err == nil && found {
			return &snapshot, nil
		}
	}

	err := r.db.SQLWithContext(ctx).Order("created_at DESC").First(&snapshot).Error
	if err != nil {
		return nil, log.Err("failed to get latest snapshot", err)
	}

	if err := r.cacheLatest(ctx, &snapshot); err != nil {
		log.Warn("failed to cache latest snapshot", "error", err)
	}

	return &snapshot, nil
}

func (r *snapshotRepository) GetTimeline(ctx context.Context, limit int) ([]ProgressSnapshot, error) {
	log := r.log.Function("GetTimeline")

	if limit <= 0 || limit > 1000 {
		limit = DEFAULT_TIMELINE_LIMIT
	}

	var snapshots []ProgressSnapshot
	err := r.db.SQLWithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, log.Err("failed to get snapshot timeline", err, "limit", limit)
	}

	return snapshots, nil
}

func (r *snapshotRepository) cacheLatest(ctx context.Context, snapshot *ProgressSnapshot) error {
	if r.db.Cache.General == nil {
		return nil
	}
	return database.NewCacheBuilder(r.db.Cache.General, LATEST_SNAPSHOT_CACHE_KEY).
		WithStruct(snapshot).
		WithTTL(LATEST_SNAPSHOT_CACHE_EXPIRY).
		WithContext(ctx).
		Set()
}
