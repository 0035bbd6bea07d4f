package progressController

import (
	"context"

	"spendlens/config"
	"spendlens/internal/events"
	"spendlens/internal/logger"
	"spendlens/internal/models"
	"spendlens/internal/progress"
	"spendlens/internal/repositories"

	"spendlens/internal/jobs"
)

type ProgressController struct {
	engine        *progress.Engine
	milestoneRepo repositories.MilestoneRepository
	snapshotRepo  repositories.SnapshotRepository
	eventBus      *events.EventBus
	Config        config.Config
	log           logger.Logger
}

type ProgressControllerInterface interface {
	GetStats() progress.ProgressState
	Sync(ctx context.Context, ids []string) progress.ProgressState
	Toggle(ctx context.Context, id string) progress.ProgressState
	Reset(ctx context.Context, confirm bool) (progress.ProgressState, error)
	ResetScoped(ctx context.Context, ids []string, confirm bool) (progress.ProgressState, error)
	Export() map[string]bool
	Import(ctx context.Context, data map[string]bool) (progress.ProgressState, int)
	Timeline(ctx context.Context, limit int) ([]models.ProgressSnapshot, error)
	RecentMilestones(ctx context.Context, limit int) ([]models.MilestoneEvent, error)
}

func New(
	engine *progress.Engine,
	repos repositories.Repository,
	eventBus *events.EventBus,
	config config.Config,
) ProgressControllerInterface {
	controller := &ProgressController{
		engine:        engine,
		milestoneRepo: repos.Milestone,
		snapshotRepo:  repos.Snapshot,
		eventBus:      eventBus,
		Config:        config,
		log:           logger.New("progressController"),
	}

	engine.OnMilestone(controller.handleMilestone)

	return controller
}

func (pc *ProgressController) GetStats() progress.ProgressState {
	return pc.engine.GetStats()
}

func (pc *ProgressController) Sync(ctx context.Context, ids []string) progress.ProgressState {
	stats := pc.engine.RegisterOrSync(ctx, ids)
	pc.publishProgress(stats)
	return stats
}

func (pc *ProgressController) Toggle(ctx context.Context, id string) progress.ProgressState {
	stats := pc.engine.Toggle(ctx, id)
	pc.publishProgress(stats)
	return stats
}

func (pc *ProgressController) Reset(ctx context.Context, confirm bool) (progress.ProgressState, error) {
	log := pc.log.Function("Reset")

	stats, err := pc.engine.Reset(ctx, confirm)
	if err != nil {
		return stats, err
	}

	pc.recordSnapshot(ctx, stats, models.SnapshotSourceReset)
	pc.publishProgress(stats)

	log.Info("Progress reset confirmed")
	return stats, nil
}

func (pc *ProgressController) ResetScoped(ctx context.Context, ids []string, confirm bool) (progress.ProgressState, error) {
	stats, err := pc.engine.ResetScoped(ctx, ids, confirm)
	if err != nil {
		return stats, err
	}

	pc.recordSnapshot(ctx, stats, models.SnapshotSourceReset)
	pc.publishProgress(stats)
	return stats, nil
}

func (pc *ProgressController) Export() map[string]bool {
	return pc.engine.Export()
}

func (pc *ProgressController) Import(ctx context.Context, data map[string]bool) (progress.ProgressState, int) {
	applied := pc.engine.Import(ctx, data)
	stats := pc.engine.GetStats()
	pc.publishProgress(stats)
	return stats, applied
}

func (pc *ProgressController) Timeline(ctx context.Context, limit int) ([]models.ProgressSnapshot, error) {
	return pc.snapshotRepo.GetTimeline(ctx, limit)
}

func (pc *ProgressController) RecentMilestones(ctx context.Context, limit int) ([]models.MilestoneEvent, error) {
	return pc.milestoneRepo.GetRecent(ctx, limit)
}

// handleMilestone records the crossing durably and fans it out to clients
func (pc *ProgressController) handleMilestone(threshold int, stats progress.ProgressState) {
	log := pc.log.Function("handleMilestone")
	ctx := context.Background()

	completionPct := 0.0
	if stats.TotalCount > 0 {
		completionPct = float64(stats.CompletedCount) / float64(stats.TotalCount) * 100
	}

	event := &models.MilestoneEvent{
		Threshold:      threshold,
		CompletedCount: stats.CompletedCount,
		TotalCount:     stats.TotalCount,
		CompletionPct:  completionPct,
	}
	if err := pc.milestoneRepo.Create(ctx, event); err != nil {
		log.Warn("failed to record milestone event", "threshold", threshold, "error", err)
	}

	pc.recordSnapshot(ctx, stats, models.SnapshotSourceToggle)

	if err := pc.eventBus.PublishMilestone(threshold, stats); err != nil {
		log.Warn("failed to publish milestone event", "threshold", threshold, "error", err)
	}
}

func (pc *ProgressController) publishProgress(stats progress.ProgressState) {
	if err := pc.eventBus.PublishProgressUpdate(stats); err != nil {
		pc.log.Function("publishProgress").Warn("failed to publish progress update", "error", err)
	}
}

func (pc *ProgressController) recordSnapshot(ctx context.Context, stats progress.ProgressState, source string) {
	log := pc.log.Function("recordSnapshot")

	record, err := jobs.SnapshotFromStats(stats, source)
	if err != nil {
		log.Warn("failed to build snapshot record", "error", err)
		return
	}
	if err := pc.snapshotRepo.Create(ctx, record); err != nil {
		log.Warn("failed to persist snapshot", "source", source, "error", err)
	}
}
