package model

import "time"

// TimeEntry represents a single tracked span of work.
//
// EndTime == nil means the entry is still running. IsActive is persisted so
// the store can filter active entries without a full scan, but it is a
// denormalized field: it is recomputed from EndTime on every write and never
// set independently.
type TimeEntry struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	OwnerID     string     `json:"owner_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	SyncVersion int64      `json:"sync_version"`
}

// NewRunningEntry creates an entry that starts now and has no end yet.
func NewRunningEntry(id, projectID, ownerID string, start time.Time) TimeEntry {
	now := time.Now()
	return TimeEntry{
		ID:        id,
		ProjectID: projectID,
		OwnerID:   ownerID,
		StartTime: start,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCompletedEntry creates a backfilled entry with both ends known.
func NewCompletedEntry(id, projectID, ownerID string, start, end time.Time, description string) TimeEntry {
	now := time.Now()
	e := TimeEntry{
		ID:          id,
		ProjectID:   projectID,
		OwnerID:     ownerID,
		StartTime:   start,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.EndTime = &end
	return e
}

// Running reports whether the entry has no end time yet. This is the
// authoritative predicate; IsActive merely mirrors it.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// Duration returns the entry's span, using now as the end for a running
// entry. Corrupt entries (end before start, or end in the future) report
// zero so aggregate sums never go negative.
func (e *TimeEntry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
		if end.After(now) {
			return 0
		}
	}
	if end.Before(e.StartTime) {
		return 0
	}
	return end.Sub(e.StartTime)
}
