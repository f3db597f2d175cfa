package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()

	manager := tracker.NewSessionManager(st, sync.LocalOwner)
	defer manager.Close()

	entry, err := manager.StopTracking(ctx)
	if errors.Is(err, tracker.ErrNoActiveSession) {
		fmt.Println("No timer running.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stop tracking: %w", err)
	}

	name := entry.ProjectID
	if p, perr := st.GetProject(ctx, entry.ProjectID); perr == nil {
		name = p.Name
	}

	fmt.Printf("■ Stopped [%s] at %s, tracked %s\n",
		name, formatClock(*entry.EndTime), tracker.FormatSpan(entry.Duration(*entry.EndTime)))

	MaybeSyncAfterChange(database, false)
	return nil
}
