package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's total",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()
	now := time.Now()

	active, err := st.ListActiveEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to read active entries: %w", err)
	}

	if len(active) == 0 {
		fmt.Println("No timer running.")
	} else {
		e := active[0]
		name := e.ProjectID
		if p, perr := st.GetProject(ctx, e.ProjectID); perr == nil {
			name = p.Name
		}
		fmt.Printf("▶ Tracking [%s] for %s (since %s)\n",
			name, tracker.ElapsedLabel(e.StartTime, now), formatClock(e.StartTime))
		if e.Description != "" {
			fmt.Printf("  %s\n", e.Description)
		}
	}

	// Today's total across all projects
	entries, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	from, to := tracker.DayRange(now)
	today := tracker.FilterEntries(entries, nil, tracker.Filter{From: from, To: to}, now)
	total := tracker.TotalDuration(today, now)

	fmt.Printf("Today: %s across %d entries\n", tracker.FormatSpan(total), len(today))
	return nil
}
