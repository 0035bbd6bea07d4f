package jobs

import (
	"context"
	"encoding/json"

	"spendlens/internal/logger"
	"spendlens/internal/models"
	"spendlens/internal/progress"
	"spendlens/internal/repositories"
	"spendlens/internal/services"
)

// ProgressSnapshotJob periodically records the current derived progress so
// the timeline widget has history to draw
type ProgressSnapshotJob struct {
	engine   *progress.Engine
	snapshot repositories.SnapshotRepository
	log      logger.Logger
	schedule services.Schedule
}

func NewProgressSnapshotJob(
	engine *progress.Engine,
	snapshot repositories.SnapshotRepository,
	schedule services.Schedule,
) *ProgressSnapshotJob {
	return &ProgressSnapshotJob{
		engine:   engine,
		snapshot: snapshot,
		log:      logger.New("progressSnapshotJob"),
		schedule: schedule,
	}
}

func (j *ProgressSnapshotJob) Name() string {
	return "ProgressSnapshot"
}

func (j *ProgressSnapshotJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	stats := j.engine.GetStats()

	record, err := SnapshotFromStats(stats, models.SnapshotSourceScheduled)
	if err != nil {
		return log.Err("failed to build snapshot record", err)
	}

	if err := j.snapshot.Create(ctx, record); err != nil {
		return log.Err("failed to persist progress snapshot", err)
	}

	log.Info("Progress snapshot recorded",
		"completed", stats.CompletedCount,
		"total", stats.TotalCount,
		"displayedPct", stats.DisplayedPct)
	return nil
}

func (j *ProgressSnapshotJob) Schedule() services.Schedule {
	return j.schedule
}

// SnapshotFromStats converts derived progress into a persistable record
func SnapshotFromStats(stats progress.ProgressState, source string) (*models.ProgressSnapshot, error) {
	gate, err := json.Marshal(stats.Gate)
	if err != nil {
		return nil, err
	}

	return &models.ProgressSnapshot{
		Source:            source,
		TotalCount:        stats.TotalCount,
		CompletedCount:    stats.CompletedCount,
		MustHavePct:       stats.MustHavePct,
		CategorizationPct: stats.CategorizationPct,
		WeightedPct:       stats.WeightedPct,
		DisplayedPct:      stats.DisplayedPct,
		Gate:              gate,
	}, nil
}
