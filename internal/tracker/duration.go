package tracker

import (
	"fmt"
	"time"
)

// MinEntryDuration is the single duration floor applied to manual entries.
// It matches the display rounding unit so an accepted entry can never render
// as "0m".
const MinEntryDuration = time.Minute

// RoundMinutes rounds a span to whole minutes, half up. This is the one
// rounding rule used everywhere a duration is displayed or totalled.
func RoundMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + 30*time.Second) / time.Minute)
}

// FormatDuration renders a minute count as "1h 30m", or "45m" below an hour.
// Zero renders as "0m".
func FormatDuration(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	hours := totalMinutes / 60
	mins := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormatSpan rounds a duration and renders it in one step
func FormatSpan(d time.Duration) string {
	return FormatDuration(RoundMinutes(d))
}

// ElapsedLabel returns a human-relative description of how long ago start
// was, recomputed each tick while a session runs. Sub-minute spans get
// second-level granularity so a freshly started timer visibly moves.
func ElapsedLabel(start, now time.Time) string {
	d := now.Sub(start)
	if d < 0 {
		d = 0
	}

	seconds := int(d / time.Second)
	minutes := int(d / time.Minute)

	switch {
	case seconds < 5:
		return "less than 5 seconds"
	case seconds < 10:
		return "less than 10 seconds"
	case seconds < 20:
		return "less than 20 seconds"
	case seconds < 40:
		return "half a minute"
	case seconds < 60:
		return "less than a minute"
	case minutes == 1:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	}

	hours := int((d + 30*time.Minute) / time.Hour)
	switch {
	case hours < 24:
		return fmt.Sprintf("about %d hours", hours)
	case hours < 42:
		return "1 day"
	}

	days := int((d + 12*time.Hour) / (24 * time.Hour))
	return fmt.Sprintf("%d days", days)
}
