package tracker

import (
	"strings"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

// Validator checks manual/backfilled entries before they reach the store.
// Validation failures never touch the store boundary.
type Validator struct {
	// MinDuration is the smallest span an entry may cover. Zero falls back
	// to MinEntryDuration.
	MinDuration time.Duration
	// RejectOverlaps rejects entries that intersect the owner's existing
	// entries. Off by default: overlapping entries are legal product
	// behavior, and when summed they count independently per entry.
	RejectOverlaps bool
}

// Validate checks a manual entry and reports every failed rule at once.
// existing is the owner's current entry set, consulted only when
// RejectOverlaps is set. On success the returned entry is a fully-formed
// Completed payload, description trimmed, ready for the store.
func (v Validator) Validate(ownerID, projectID string, start, end time.Time, description string, existing []model.TimeEntry) (model.TimeEntry, ValidationErrors) {
	var errs ValidationErrors

	if strings.TrimSpace(projectID) == "" {
		errs = append(errs, ValidationError{
			Code:    CodeMissingProject,
			Field:   "project",
			Message: "a project must be selected",
		})
	}
	if start.IsZero() {
		errs = append(errs, ValidationError{
			Code:    CodeMissingStart,
			Field:   "start",
			Message: "start time is required",
		})
	}
	if end.IsZero() {
		errs = append(errs, ValidationError{
			Code:    CodeMissingEnd,
			Field:   "end",
			Message: "end time is required",
		})
	}

	if !start.IsZero() && !end.IsZero() {
		if !end.After(start) {
			errs = append(errs, ValidationError{
				Code:    CodeEndBeforeStart,
				Field:   "end",
				Message: "end time must be after start time",
			})
		} else {
			min := v.MinDuration
			if min <= 0 {
				min = MinEntryDuration
			}
			if end.Sub(start) < min {
				errs = append(errs, ValidationError{
					Code:    CodeDurationTooShort,
					Field:   "end",
					Message: "entry must be at least " + FormatSpan(min) + " long",
				})
			}
			if v.RejectOverlaps && overlapsAny(start, end, existing) {
				errs = append(errs, ValidationError{
					Code:    CodeOverlap,
					Field:   "start",
					Message: "entry overlaps an existing entry",
				})
			}
		}
	}

	if len(errs) > 0 {
		return model.TimeEntry{}, errs
	}

	return model.NewCompletedEntry("", projectID, ownerID, start, end, strings.TrimSpace(description)), nil
}

// overlapsAny reports whether [start, end) intersects any live entry. A
// running entry is treated as open-ended. Touching boundaries do not count
// as overlap.
func overlapsAny(start, end time.Time, existing []model.TimeEntry) bool {
	for i := range existing {
		e := &existing[i]
		if e.DeletedAt != nil {
			continue
		}
		if !end.After(e.StartTime) {
			continue
		}
		if e.EndTime != nil && !e.EndTime.After(start) {
			continue
		}
		return true
	}
	return false
}
