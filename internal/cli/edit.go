package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [entry-id]",
	Short: "Correct an entry's start time",
	Long: `Retime an entry whose timer was started late. A unique prefix of
the entry ID works. The new start may not lie in the future or at or past
the entry's end.

Times accept a clock time for today ("14:00"), a date with time
("2026-08-30 14:00"), or RFC3339.

Examples:
  irontrack edit 4f2a91c3 --start 08:45
  irontrack edit 4f2a --start "2026-08-30 09:00"`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var editStart string

func init() {
	editCmd.Flags().StringVar(&editStart, "start", "", "New start time (required)")
	editCmd.MarkFlagRequired("start")
}

func runEdit(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()

	entry, err := st.ResolveEntry(ctx, args[0])
	if err != nil {
		return fmt.Errorf("entry not found: %s", args[0])
	}

	newStart, err := parseTimeArg(editStart, time.Now())
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}

	manager := tracker.NewSessionManager(st, sync.LocalOwner)
	defer manager.Close()

	if err := manager.EditStartTime(ctx, entry.ID, newStart); err != nil {
		var verrs tracker.ValidationErrors
		if errors.As(err, &verrs) {
			fmt.Println("Entry not changed:")
			for _, ve := range verrs {
				fmt.Printf("  • %s\n", ve.Message)
			}
			return fmt.Errorf("%d validation error(s)", len(verrs))
		}
		return fmt.Errorf("failed to edit entry: %w", err)
	}

	updated, err := st.GetEntry(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to reload entry: %w", err)
	}

	if updated.EndTime != nil {
		fmt.Printf("✓ Entry %s now %s → %s (%s)\n",
			shortID(updated.ID), formatClock(updated.StartTime), formatClock(*updated.EndTime),
			tracker.FormatSpan(updated.Duration(*updated.EndTime)))
	} else {
		fmt.Printf("✓ Entry %s now starts at %s\n",
			shortID(updated.ID), formatClock(updated.StartTime))
	}

	MaybeSyncAfterChange(database, false)
	return nil
}
