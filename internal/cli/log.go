package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/config"
	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log [project]",
	Short: "Log a past time entry",
	Long: `Backfill an entry for work done without a running timer.
Both start and end are required and the entry must last at least a minute.

Times accept a clock time for today ("14:00"), a date with time
("2026-08-30 14:00"), or RFC3339.

With no project argument the most recently tracked project is used.

Examples:
  irontrack log website --from 14:00 --to 15:30
  irontrack log "Client Work" --from "2026-08-30 09:00" --to "2026-08-30 11:15" -d "quarterly review"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

var (
	logFrom        string
	logTo          string
	logDescription string
)

func init() {
	logCmd.Flags().StringVar(&logFrom, "from", "", "Start time (required)")
	logCmd.Flags().StringVar(&logTo, "to", "", "End time (required)")
	logCmd.Flags().StringVarP(&logDescription, "description", "d", "", "What you worked on")
	logCmd.MarkFlagRequired("from")
	logCmd.MarkFlagRequired("to")
}

func runLog(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()
	now := time.Now()

	var project model.Project
	if len(args) > 0 {
		project, err = resolveProject(ctx, st, args[0])
	} else {
		project, err = recentProject(ctx, st)
	}
	if err != nil {
		return err
	}

	start, err := parseTimeArg(logFrom, now)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	end, err := parseTimeArg(logTo, now)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	cfg, _ := config.Load()
	v := tracker.Validator{
		MinDuration:    time.Duration(cfg.MinEntryMinutes) * time.Minute,
		RejectOverlaps: cfg.RejectOverlaps,
	}

	existing, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	entry, verrs := v.Validate(sync.LocalOwner, project.ID, start, end, logDescription, existing)
	if len(verrs) > 0 {
		// Report every problem at once rather than one per invocation
		fmt.Println("Entry not logged:")
		for _, ve := range verrs {
			fmt.Printf("  • %s\n", ve.Message)
		}
		return fmt.Errorf("%d validation error(s)", len(verrs))
	}

	created, err := st.CreateEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	minutes := tracker.RoundMinutes(created.Duration(now))
	fmt.Printf("✓ Logged %s on [%s] (%s → %s, entry %s)\n",
		tracker.FormatDuration(minutes), project.Name,
		formatClock(created.StartTime), formatClock(*created.EndTime), shortID(created.ID))

	MaybeSyncAfterChange(database, false)
	return nil
}

// parseTimeArg parses the time formats the log and list commands accept.
// A bare clock time resolves to today in local time.
func parseTimeArg(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", s, time.Local); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
