package model

import "time"

// EntryPatch describes a partial update to a time entry. Nil fields are left
// untouched. There is deliberately no way to clear an end time: a completed
// entry never transitions back to running.
type EntryPatch struct {
	ProjectID   *string
	StartTime   *time.Time
	EndTime     *time.Time
	Description *string
}
