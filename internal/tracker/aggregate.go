package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

// Aggregation and filtering over an already-fetched entry collection. Every
// view consumes these; no screen re-derives its own variant. Functions that
// need the current instant take it explicitly, so results are valid as of
// that instant and callers recompute on their own tick.

// Filter selects a subset of entries. Zero values mean "no constraint".
type Filter struct {
	Search    string // case-insensitive match on project name or description
	ProjectID string // exact match
	From, To  time.Time
}

// FilterEntries applies a filter. The date range keeps every entry whose
// interval [start, end-or-now] intersects [From, To]; an entry spanning
// midnight shows up on both days.
func FilterEntries(entries []model.TimeEntry, projects map[string]model.Project, f Filter, now time.Time) []model.TimeEntry {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []model.TimeEntry
	for _, e := range entries {
		if f.ProjectID != "" && e.ProjectID != f.ProjectID {
			continue
		}
		if search != "" {
			name := strings.ToLower(projects[e.ProjectID].Name)
			desc := strings.ToLower(e.Description)
			if !strings.Contains(name, search) && !strings.Contains(desc, search) {
				continue
			}
		}
		if !f.From.IsZero() || !f.To.IsZero() {
			end := now
			if e.EndTime != nil {
				end = *e.EndTime
			}
			if !f.From.IsZero() && end.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && e.StartTime.After(f.To) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// TotalDuration sums entry durations, treating a running entry's end as now.
// Corrupt entries (end before start, end in the future) contribute nothing,
// so the total is never negative. Overlapping entries are summed
// independently, not merged.
func TotalDuration(entries []model.TimeEntry, now time.Time) time.Duration {
	var total time.Duration
	for i := range entries {
		total += entries[i].Duration(now)
	}
	return total
}

// GroupByProject totals rounded minutes per project, the shape the
// breakdown chart consumes.
func GroupByProject(entries []model.TimeEntry, now time.Time) map[string]int {
	totals := make(map[string]int)
	for i := range entries {
		e := &entries[i]
		totals[e.ProjectID] += RoundMinutes(e.Duration(now))
	}
	return totals
}

// DaySummary is one day's totals for the calendar week strip
type DaySummary struct {
	Total  time.Duration
	Colors []string // distinct project colors, first-seen order
}

// GroupByDay buckets entries by their start day
func GroupByDay(entries []model.TimeEntry, projects map[string]model.Project, now time.Time) map[string]DaySummary {
	days := make(map[string]DaySummary)
	for i := range entries {
		e := &entries[i]
		key := DayKey(e.StartTime)
		day := days[key]
		day.Total += e.Duration(now)

		color := projects[e.ProjectID].Color
		if color != "" && !containsString(day.Colors, color) {
			day.Colors = append(day.Colors, color)
		}
		days[key] = day
	}
	return days
}

// DayKey formats the bucket key for a day
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayRange returns the inclusive [startOfDay, endOfDay] bounds of t's day,
// for use as a Filter range.
func DayRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// SortEntries orders entries most recent start first, tie-broken by ID so
// equal timestamps stay deterministic.
func SortEntries(entries []model.TimeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.After(entries[j].StartTime)
		}
		return entries[i].ID < entries[j].ID
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
