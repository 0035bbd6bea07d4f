package jobs

import (
	"context"
	"testing"

	"spendlens/internal/models"
	"spendlens/internal/progress"
	"spendlens/internal/services"
	"spendlens/internal/state"
	"spendlens/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSnapshotRepo struct {
	created []models.ProgressSnapshot
}

func (r *recordingSnapshotRepo) Create(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	r.created = append(r.created, *snapshot)
	return nil
}

func (r *recordingSnapshotRepo) GetLatest(ctx context.Context) (*models.ProgressSnapshot, error) {
	return nil, nil
}

func (r *recordingSnapshotRepo) GetTimeline(ctx context.Context, limit int) ([]models.ProgressSnapshot, error) {
	return r.created, nil
}

func newJobEngine(t *testing.T) *progress.Engine {
	t.Helper()

	container := state.New(
		storage.New(nil, storage.Options{Namespace: "state_"}),
		state.NewFakeClock(),
		state.DefaultDebounce,
		nil,
	)
	container.Init(context.Background())

	engine, err := progress.New(
		progress.DefaultConfig([]string{"m1"}, []string{"c1"}),
		storage.New(nil, storage.Options{Namespace: "progress_"}),
		container,
	)
	require.NoError(t, err)
	return engine
}

func TestSnapshotJobRecordsCurrentProgress(t *testing.T) {
	engine := newJobEngine(t)
	ctx := context.Background()

	engine.RegisterOrSync(ctx, []string{"m1", "c1", "o1", "o2"})
	engine.Toggle(ctx, "m1")
	engine.Toggle(ctx, "o1")

	repo := &recordingSnapshotRepo{}
	job := NewProgressSnapshotJob(engine, repo, services.Hourly)

	assert.Equal(t, "ProgressSnapshot", job.Name())
	assert.Equal(t, services.Hourly, job.Schedule())

	require.NoError(t, job.Execute(ctx))

	require.Len(t, repo.created, 1)
	recorded := repo.created[0]
	assert.Equal(t, models.SnapshotSourceScheduled, recorded.Source)
	assert.Equal(t, 4, recorded.TotalCount)
	assert.Equal(t, 2, recorded.CompletedCount)
	assert.NotEmpty(t, recorded.Gate)
}

func TestSnapshotFromStatsSerializesGate(t *testing.T) {
	stats := progress.ProgressState{
		TotalCount:     10,
		CompletedCount: 4,
		DisplayedPct:   40,
		Gate: progress.GateStatus{
			Blocked:     true,
			MaxProgress: 40,
			Reason:      "must-have fields incomplete",
		},
	}

	record, err := SnapshotFromStats(stats, models.SnapshotSourceToggle)
	require.NoError(t, err)

	assert.Equal(t, models.SnapshotSourceToggle, record.Source)
	assert.Equal(t, 40, record.DisplayedPct)
	assert.Contains(t, string(record.Gate), "must-have fields incomplete")
}
