package models

// MilestoneEvent records a single upward crossing of a completion milestone.
// A threshold is recorded at most once per tracked run; a reset clears the
// marker and allows the milestone to fire again.
type MilestoneEvent struct {
	BaseUUIDModel
	Threshold      int     `gorm:"type:int;not null;index" json:"threshold"`
	CompletedCount int     `gorm:"type:int;not null"       json:"completedCount"`
	TotalCount     int     `gorm:"type:int;not null"       json:"totalCount"`
	CompletionPct  float64 `gorm:"type:numeric"            json:"completionPct"`
}
