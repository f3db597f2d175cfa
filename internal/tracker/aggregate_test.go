package tracker

import (
	"testing"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 10, hour, min, 0, 0, time.UTC)
}

func completed(id, project string, start, end time.Time) model.TimeEntry {
	return model.NewCompletedEntry(id, project, "u1", start, end, "")
}

func TestTotalDuration(t *testing.T) {
	now := at(16, 0)

	// Overlapping entries are summed per entry, not merged: 30m + 30m = 60m
	entries := []model.TimeEntry{
		completed("e1", "p1", at(14, 0), at(14, 30)),
		completed("e2", "p2", at(14, 15), at(14, 45)),
	}
	if got := TotalDuration(entries, now); got != time.Hour {
		t.Errorf("TotalDuration = %v, want 1h", got)
	}
}

func TestTotalDurationExcludesCorrupt(t *testing.T) {
	now := at(16, 0)

	entries := []model.TimeEntry{
		completed("e1", "p1", at(14, 0), at(13, 0)),  // end before start
		completed("e2", "p1", at(15, 0), at(18, 0)),  // end in the future
		completed("e3", "p1", at(14, 0), at(14, 30)), // fine
	}
	if got := TotalDuration(entries, now); got != 30*time.Minute {
		t.Errorf("TotalDuration = %v, want 30m (corrupt entries excluded)", got)
	}
	if TotalDuration(entries[:2], now) < 0 {
		t.Error("TotalDuration went negative")
	}
}

func TestTotalDurationRunningEntryUsesNow(t *testing.T) {
	entries := []model.TimeEntry{model.NewRunningEntry("e1", "p1", "u1", at(14, 0))}
	if got := TotalDuration(entries, at(14, 45)); got != 45*time.Minute {
		t.Errorf("TotalDuration = %v, want 45m", got)
	}
}

func TestFilterEntriesDateRangeIntersects(t *testing.T) {
	// An entry spanning midnight belongs to both days
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	entries := []model.TimeEntry{completed("e1", "p1", start, end)}
	now := end.Add(time.Hour)

	jan1From, jan1To := DayRange(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	jan2From, jan2To := DayRange(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	jan3From, jan3To := DayRange(time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))

	if got := FilterEntries(entries, nil, Filter{From: jan1From, To: jan1To}, now); len(got) != 1 {
		t.Error("entry must be included on Jan 1")
	}
	if got := FilterEntries(entries, nil, Filter{From: jan2From, To: jan2To}, now); len(got) != 1 {
		t.Error("entry must be included on Jan 2")
	}
	if got := FilterEntries(entries, nil, Filter{From: jan3From, To: jan3To}, now); len(got) != 0 {
		t.Error("entry must not be included on Jan 3")
	}
}

func TestFilterEntriesSearch(t *testing.T) {
	projects := map[string]model.Project{
		"p1": {ID: "p1", Name: "Website Redesign"},
		"p2": {ID: "p2", Name: "Internal Tools"},
	}
	e1 := completed("e1", "p1", at(9, 0), at(10, 0))
	e2 := completed("e2", "p2", at(10, 0), at(11, 0))
	e2.Description = "fixed the website deploy script"
	entries := []model.TimeEntry{e1, e2}
	now := at(12, 0)

	// Matches project name on e1 and description on e2, case-insensitive
	got := FilterEntries(entries, projects, Filter{Search: "WEBSITE"}, now)
	if len(got) != 2 {
		t.Fatalf("search matched %d entries, want 2", len(got))
	}

	got = FilterEntries(entries, projects, Filter{Search: "internal"}, now)
	if len(got) != 1 || got[0].ID != "e2" {
		t.Fatalf("search by project name failed: %v", got)
	}
}

func TestFilterEntriesProject(t *testing.T) {
	entries := []model.TimeEntry{
		completed("e1", "p1", at(9, 0), at(10, 0)),
		completed("e2", "p2", at(10, 0), at(11, 0)),
	}
	got := FilterEntries(entries, nil, Filter{ProjectID: "p2"}, at(12, 0))
	if len(got) != 1 || got[0].ID != "e2" {
		t.Fatalf("project filter failed: %v", got)
	}
}

func TestGroupByProject(t *testing.T) {
	entries := []model.TimeEntry{
		completed("e1", "p1", at(14, 0), at(14, 30)),
		completed("e2", "p1", at(15, 0), at(16, 0)),
		completed("e3", "p2", at(14, 15), at(14, 45)),
	}
	totals := GroupByProject(entries, at(17, 0))
	if totals["p1"] != 90 {
		t.Errorf("p1 total = %d, want 90", totals["p1"])
	}
	if totals["p2"] != 30 {
		t.Errorf("p2 total = %d, want 30", totals["p2"])
	}
}

func TestGroupByDay(t *testing.T) {
	projects := map[string]model.Project{
		"p1": {ID: "p1", Color: "#FF6B6B"},
		"p2": {ID: "p2", Color: "#4ECDC4"},
	}
	entries := []model.TimeEntry{
		completed("e1", "p1", at(9, 0), at(10, 0)),
		completed("e2", "p2", at(11, 0), at(11, 30)),
		completed("e3", "p1", at(12, 0), at(12, 30)),
	}
	days := GroupByDay(entries, projects, at(13, 0))

	day, ok := days["2024-03-10"]
	if !ok {
		t.Fatal("missing day bucket")
	}
	if day.Total != 2*time.Hour {
		t.Errorf("day total = %v, want 2h", day.Total)
	}
	if len(day.Colors) != 2 {
		t.Errorf("distinct colors = %v, want 2", day.Colors)
	}
}

func TestSortEntries(t *testing.T) {
	entries := []model.TimeEntry{
		completed("b", "p1", at(9, 0), at(10, 0)),
		completed("a", "p1", at(9, 0), at(10, 0)),
		completed("c", "p1", at(12, 0), at(13, 0)),
	}
	SortEntries(entries)

	if entries[0].ID != "c" {
		t.Errorf("most recent start must come first, got %s", entries[0].ID)
	}
	// Equal start times tie-break by ID
	if entries[1].ID != "a" || entries[2].ID != "b" {
		t.Errorf("tie-break by id failed: %s, %s", entries[1].ID, entries[2].ID)
	}
}
