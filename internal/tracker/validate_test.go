package tracker

import (
	"testing"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

func day(h, m int) time.Time {
	return time.Date(2024, 3, 10, h, m, 0, 0, time.UTC)
}

func TestValidateSuccess(t *testing.T) {
	v := Validator{}

	entry, errs := v.Validate("u1", "p1", day(14, 0), day(15, 30), "  wrote docs  ", nil)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if entry.ProjectID != "p1" || entry.OwnerID != "u1" {
		t.Errorf("wrong payload identity: %+v", entry)
	}
	if entry.Description != "wrote docs" {
		t.Errorf("description not trimmed: %q", entry.Description)
	}
	if entry.Running() {
		t.Error("manual entry must be completed, not running")
	}
	if entry.EndTime == nil || !entry.EndTime.Equal(day(15, 30)) {
		t.Errorf("wrong end time: %v", entry.EndTime)
	}
}

func TestValidateReportsAllErrors(t *testing.T) {
	v := Validator{}

	// Everything missing: all three rules must be reported, not just the first
	_, errs := v.Validate("u1", "", time.Time{}, time.Time{}, "", nil)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, code := range []ValidationCode{CodeMissingProject, CodeMissingStart, CodeMissingEnd} {
		if !errs.Has(code) {
			t.Errorf("missing expected code %s", code)
		}
	}
}

func TestValidateEndBeforeStart(t *testing.T) {
	v := Validator{}

	_, errs := v.Validate("u1", "p1", day(14, 0), day(13, 0), "", nil)
	if len(errs) != 1 || !errs.Has(CodeEndBeforeStart) {
		t.Fatalf("expected single EndBeforeStart, got %v", errs)
	}

	// Equal start and end is not strictly after
	_, errs = v.Validate("u1", "p1", day(14, 0), day(14, 0), "", nil)
	if !errs.Has(CodeEndBeforeStart) {
		t.Fatalf("expected EndBeforeStart for equal times, got %v", errs)
	}
}

func TestValidateMinimumDuration(t *testing.T) {
	v := Validator{} // zero MinDuration falls back to MinEntryDuration

	_, errs := v.Validate("u1", "p1", day(14, 0), day(14, 0).Add(30*time.Second), "", nil)
	if !errs.Has(CodeDurationTooShort) {
		t.Fatalf("expected DurationTooShort, got %v", errs)
	}

	_, errs = v.Validate("u1", "p1", day(14, 0), day(14, 1), "", nil)
	if errs != nil {
		t.Fatalf("exactly one minute should pass, got %v", errs)
	}

	v.MinDuration = 5 * time.Minute
	_, errs = v.Validate("u1", "p1", day(14, 0), day(14, 3), "", nil)
	if !errs.Has(CodeDurationTooShort) {
		t.Fatalf("expected DurationTooShort under raised floor, got %v", errs)
	}
}

func TestValidateOverlapPolicy(t *testing.T) {
	existing := []model.TimeEntry{
		model.NewCompletedEntry("e1", "p1", "u1", day(14, 0), day(15, 0), ""),
	}

	// Overlaps are allowed by default
	v := Validator{}
	if _, errs := v.Validate("u1", "p1", day(14, 30), day(15, 30), "", existing); errs != nil {
		t.Fatalf("default policy must allow overlap, got %v", errs)
	}

	v.RejectOverlaps = true
	_, errs := v.Validate("u1", "p1", day(14, 30), day(15, 30), "", existing)
	if !errs.Has(CodeOverlap) {
		t.Fatalf("expected overlap rejection, got %v", errs)
	}

	// Touching boundaries are not overlap
	if _, errs := v.Validate("u1", "p1", day(15, 0), day(16, 0), "", existing); errs != nil {
		t.Fatalf("adjacent entry must pass, got %v", errs)
	}

	// A running entry is open-ended
	running := []model.TimeEntry{model.NewRunningEntry("e2", "p1", "u1", day(14, 0))}
	_, errs = v.Validate("u1", "p1", day(18, 0), day(19, 0), "", running)
	if !errs.Has(CodeOverlap) {
		t.Fatalf("expected overlap with running entry, got %v", errs)
	}
}
