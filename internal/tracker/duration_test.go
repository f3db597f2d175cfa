package tracker

import (
	"fmt"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{1, "1m"},
		{45, "45m"},
		{59, "59m"},
		{60, "1h 0m"},
		{90, "1h 30m"},
		{61, "1h 1m"},
		{150, "2h 30m"},
		{1440, "24h 0m"},
		{-5, "0m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatDurationMatchesDivMod(t *testing.T) {
	// The rendered hour/minute pair must always equal minutes div/mod 60
	for minutes := 0; minutes <= 600; minutes++ {
		got := FormatDuration(minutes)
		h := minutes / 60
		m := minutes % 60
		var want string
		if h > 0 {
			want = fmt.Sprintf("%dh %dm", h, m)
		} else {
			want = fmt.Sprintf("%dm", m)
		}
		if got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestRoundMinutes(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Minute, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1}, // half rounds up
		{90 * time.Second, 2},
		{89 * time.Second, 1},
		{time.Hour, 60},
		{time.Hour + 30*time.Second, 61},
	}

	for _, tt := range tests {
		if got := RoundMinutes(tt.d); got != tt.want {
			t.Errorf("RoundMinutes(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestFormatSpan(t *testing.T) {
	if got := FormatSpan(90 * time.Second); got != "2m" {
		t.Errorf("FormatSpan(90s) = %q, want %q", got, "2m")
	}
	if got := FormatSpan(90 * time.Minute); got != "1h 30m" {
		t.Errorf("FormatSpan(90m) = %q, want %q", got, "1h 30m")
	}
}

func TestElapsedLabel(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "less than 5 seconds"},
		{4 * time.Second, "less than 5 seconds"},
		{7 * time.Second, "less than 10 seconds"},
		{15 * time.Second, "less than 20 seconds"},
		{30 * time.Second, "half a minute"},
		{50 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{2 * time.Minute, "2 minutes"},
		{44 * time.Minute, "44 minutes"},
		{45 * time.Minute, "about 1 hour"},
		{89 * time.Minute, "about 1 hour"},
		{2 * time.Hour, "about 2 hours"},
		{23 * time.Hour, "about 23 hours"},
		{25 * time.Hour, "1 day"},
		{3 * 24 * time.Hour, "3 days"},
	}

	for _, tt := range tests {
		if got := ElapsedLabel(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("ElapsedLabel(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}

	// A start in the future clamps to the freshest label instead of panicking
	if got := ElapsedLabel(now.Add(time.Minute), now); got != "less than 5 seconds" {
		t.Errorf("ElapsedLabel(future) = %q", got)
	}
}
