package progressController

import (
	"context"
	"sync"
	"testing"
	"time"

	"spendlens/config"
	"spendlens/internal/events"
	"spendlens/internal/models"
	"spendlens/internal/progress"
	"spendlens/internal/repositories"
	"spendlens/internal/state"
	"spendlens/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMilestoneRepo struct {
	mu     sync.Mutex
	events []models.MilestoneEvent
}

func (r *fakeMilestoneRepo) Create(ctx context.Context, event *models.MilestoneEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeMilestoneRepo) GetRecent(ctx context.Context, limit int) ([]models.MilestoneEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MilestoneEvent{}, r.events...), nil
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []models.ProgressSnapshot
}

func (r *fakeSnapshotRepo) Create(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, *snapshot)
	return nil
}

func (r *fakeSnapshotRepo) GetLatest(ctx context.Context) (*models.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, nil
	}
	latest := r.snapshots[len(r.snapshots)-1]
	return &latest, nil
}

func (r *fakeSnapshotRepo) GetTimeline(ctx context.Context, limit int) ([]models.ProgressSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ProgressSnapshot{}, r.snapshots...), nil
}

func (r *fakeSnapshotRepo) bySource(source string) []models.ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.ProgressSnapshot
	for _, snapshot := range r.snapshots {
		if snapshot.Source == source {
			matched = append(matched, snapshot)
		}
	}
	return matched
}

func newTestController(t *testing.T) (ProgressControllerInterface, *fakeMilestoneRepo, *fakeSnapshotRepo) {
	t.Helper()

	progressStore := storage.New(nil, storage.Options{Namespace: "progress_"})
	container := state.New(
		storage.New(nil, storage.Options{Namespace: "state_"}),
		state.NewFakeClock(),
		state.DefaultDebounce,
		nil,
	)
	container.Init(context.Background())

	engine, err := progress.New(
		progress.DefaultConfig([]string{"m1"}, []string{"c1"}),
		progressStore,
		container,
	)
	require.NoError(t, err)

	milestoneRepo := &fakeMilestoneRepo{}
	snapshotRepo := &fakeSnapshotRepo{}

	controller := New(
		engine,
		repositories.Repository{Snapshot: snapshotRepo, Milestone: milestoneRepo},
		events.New(nil),
		config.Config{},
	)
	return controller, milestoneRepo, snapshotRepo
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Fail(t, "condition not met before deadline")
}

func TestToggleRecordsMilestoneEvents(t *testing.T) {
	controller, milestoneRepo, snapshotRepo := newTestController(t)
	ctx := context.Background()

	controller.Sync(ctx, []string{"m1", "c1", "o1", "o2"})

	controller.Toggle(ctx, "m1") // 25%
	controller.Toggle(ctx, "c1") // 50%

	recorded, err := milestoneRepo.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recorded, 2)
	assert.Equal(t, 25, recorded[0].Threshold)
	assert.Equal(t, 50, recorded[1].Threshold)
	assert.Equal(t, 4, recorded[1].TotalCount)
	assert.Equal(t, 2, recorded[1].CompletedCount)

	// milestone crossings also snapshot with the toggle source
	assert.Len(t, snapshotRepo.bySource(models.SnapshotSourceToggle), 2)
}

func TestUntogglingDoesNotRecordMilestones(t *testing.T) {
	controller, milestoneRepo, _ := newTestController(t)
	ctx := context.Background()

	controller.Sync(ctx, []string{"m1", "c1", "o1", "o2"})
	controller.Toggle(ctx, "m1")
	controller.Toggle(ctx, "m1")
	controller.Toggle(ctx, "m1")

	recorded, err := milestoneRepo.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func TestResetRecordsSnapshot(t *testing.T) {
	controller, _, snapshotRepo := newTestController(t)
	ctx := context.Background()

	controller.Sync(ctx, []string{"m1", "o1"})
	controller.Toggle(ctx, "o1")

	_, err := controller.Reset(ctx, false)
	assert.ErrorIs(t, err, progress.ErrConfirmationRequired)
	assert.Empty(t, snapshotRepo.bySource(models.SnapshotSourceReset))

	stats, err := controller.Reset(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCount)

	resets := snapshotRepo.bySource(models.SnapshotSourceReset)
	require.Len(t, resets, 1)
	assert.Equal(t, 0, resets[0].CompletedCount)
}

func TestProgressUpdatesReachEventBusSubscribers(t *testing.T) {
	progressStore := storage.New(nil, storage.Options{Namespace: "progress_"})
	container := state.New(
		storage.New(nil, storage.Options{Namespace: "state_"}),
		state.NewFakeClock(),
		state.DefaultDebounce,
		nil,
	)
	container.Init(context.Background())

	engine, err := progress.New(
		progress.DefaultConfig([]string{"m1"}, []string{"c1"}),
		progressStore,
		container,
	)
	require.NoError(t, err)

	eventBus := events.New(nil)

	var mu sync.Mutex
	var received []events.MessageType
	err = eventBus.Subscribe(events.BROADCAST_CHANNEL, func(event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.Type)
		return nil
	})
	require.NoError(t, err)

	controller := New(
		engine,
		repositories.Repository{Snapshot: &fakeSnapshotRepo{}, Milestone: &fakeMilestoneRepo{}},
		eventBus,
		config.Config{},
	)

	controller.Toggle(context.Background(), "o1") // single item, 100%

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		var sawProgress, sawMilestone bool
		for _, messageType := range received {
			if messageType == events.PROGRESS_UPDATED {
				sawProgress = true
			}
			if messageType == events.MILESTONE_REACHED {
				sawMilestone = true
			}
		}
		return sawProgress && sawMilestone
	})
}

func TestImportRepublishesProgress(t *testing.T) {
	controller, _, _ := newTestController(t)
	ctx := context.Background()

	stats, applied := controller.Import(ctx, map[string]bool{"o1": true, "o2": false})
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.CompletedCount)
}
