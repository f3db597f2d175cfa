package tui

import (
	"fmt"
	"strings"
	"time"
)

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// parseEntrySpan parses the add-entry input line:
//
//	"09:00-10:30 standup notes"
//	"2026-08-30 09:00-10:30 standup notes"
//
// A bare time range is taken to be on today's date, in local time. The
// description after the range is optional.
func parseEntrySpan(input string, now time.Time) (start, end time.Time, description string, err error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return start, end, "", fmt.Errorf("expected a time range like 09:00-10:30")
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	rangeIdx := 0

	// Optional leading date
	if d, derr := time.ParseInLocation("2006-01-02", fields[0], now.Location()); derr == nil {
		day = d
		if len(fields) < 2 {
			return start, end, "", fmt.Errorf("expected a time range after the date")
		}
		rangeIdx = 1
	}

	parts := strings.SplitN(fields[rangeIdx], "-", 2)
	if len(parts) != 2 {
		return start, end, "", fmt.Errorf("expected a time range like 09:00-10:30")
	}

	from, ferr := time.Parse("15:04", parts[0])
	to, terr := time.Parse("15:04", parts[1])
	if ferr != nil || terr != nil {
		return start, end, "", fmt.Errorf("times must be HH:MM")
	}

	start = day.Add(time.Duration(from.Hour())*time.Hour + time.Duration(from.Minute())*time.Minute)
	end = day.Add(time.Duration(to.Hour())*time.Hour + time.Duration(to.Minute())*time.Minute)
	if !end.After(start) {
		// A range like 23:00-01:00 crosses midnight
		end = end.Add(24 * time.Hour)
	}

	description = strings.Join(fields[rangeIdx+1:], " ")
	return start, end, description, nil
}

// formatSpanClock renders an entry's wall-clock range, "09:00-10:30"
func formatSpanClock(start time.Time, end *time.Time) string {
	s := start.Local().Format("15:04")
	if end == nil {
		return s + "-     "
	}
	return s + "-" + end.Local().Format("15:04")
}

// dayLabel renders a day bucket key for the entry list header
func dayLabel(key string, now time.Time) string {
	day, err := time.ParseInLocation("2006-01-02", key, now.Location())
	if err != nil {
		return key
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Mon Jan 2")
	}
}
