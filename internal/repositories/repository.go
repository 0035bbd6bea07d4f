package repositories

import (
	"spendlens/internal/database"
)

type Repository struct {
	Snapshot  SnapshotRepository
	Milestone MilestoneRepository
}

func New(db database.DB) Repository {
	return Repository{
		Snapshot:  NewSnapshotRepository(db),
		Milestone: NewMilestoneRepository(db),
	}
}
