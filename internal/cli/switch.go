package cli

import (
	"context"
	"fmt"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch [project]",
	Short: "Switch the running timer to another project",
	Long: `Stop the current timer and immediately start one on another
project. The stopped entry ends at the moment the new one begins, so no
time is lost or double-counted. Starts a timer if none is running.`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func runSwitch(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()

	project, err := resolveProject(ctx, st, args[0])
	if err != nil {
		return err
	}

	manager := tracker.NewSessionManager(st, sync.LocalOwner)
	defer manager.Close()

	previous := manager.ActiveEntry()

	entry, err := manager.SwitchTracking(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to switch: %w", err)
	}

	if previous != nil {
		prevName := previous.ProjectID
		if p, perr := st.GetProject(ctx, previous.ProjectID); perr == nil {
			prevName = p.Name
		}
		fmt.Printf("■ Stopped [%s], tracked %s\n",
			prevName, tracker.FormatSpan(entry.StartTime.Sub(previous.StartTime)))
	}
	fmt.Printf("▶ Started [%s] at %s\n", project.Name, formatClock(entry.StartTime))

	MaybeSyncAfterChange(database, false)
	return nil
}
