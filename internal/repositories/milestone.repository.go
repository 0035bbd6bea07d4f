package repositories

import (
	"context"

	"spendlens/internal/database"
	"spendlens/internal/logger"
	. "spendlens/internal/models"
)

const DEFAULT_MILESTONE_LIMIT = 50

type MilestoneRepository interface {
	Create(ctx context.Context, event *MilestoneEvent) error
	GetRecent(ctx context.Context, limit int) ([]MilestoneEvent, error)
}

type milestoneRepository struct {
	db  database.DB
	log logger.Logger
}

func NewMilestoneRepository(db database.DB) MilestoneRepository {
	return &milestoneRepository{
		db:  db,
		log: logger.New("milestoneRepository"),
	}
}

func (r *milestoneRepository) Create(ctx context.Context, event *MilestoneEvent) error {
	log := r.log.Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(event).Error; err != nil {
		return log.Err("failed to record milestone event", err, "threshold", event.Threshold)
	}

	return nil
}

func (r *milestoneRepository) GetRecent(ctx context.Context, limit int) ([]MilestoneEvent, error) {
	log := r.log.Function("GetRecent")

	if limit <= 0 || limit > 500 {
		limit = DEFAULT_MILESTONE_LIMIT
	}

	var events []MilestoneEvent
	err := r.db.SQLWithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, log.Err("failed to get recent milestone events", err, "limit", limit)
	}

	return events, nil
}
