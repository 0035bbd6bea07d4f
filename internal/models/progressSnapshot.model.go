package models

import (
	"gorm.io/datatypes"
)

const (
	SnapshotSourceScheduled = "scheduled"
	SnapshotSourceToggle    = "toggle"
	SnapshotSourceReset     = "reset"
)

// ProgressSnapshot is a point-in-time capture of the progress engine's
// computed state, persisted for the timeline view.
type ProgressSnapshot struct {
	BaseUUIDModel
	Source            string         `gorm:"type:text;not null;index" json:"source"`
	TotalCount        int            `gorm:"type:int;not null"        json:"totalCount"`
	CompletedCount    int            `gorm:"type:int;not null"        json:"completedCount"`
	MustHavePct       float64        `gorm:"type:numeric"             json:"mustHavePct"`
	CategorizationPct float64        `gorm:"type:numeric"             json:"categorizationPct"`
	WeightedPct       float64        `gorm:"type:numeric"             json:"weightedPct"`
	DisplayedPct      int            `gorm:"type:int;not null"        json:"displayedPct"`
	Gate              datatypes.JSON `gorm:"type:jsonb"               json:"gate"`
}
