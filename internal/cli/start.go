package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [project]",
	Short: "Start tracking time on a project",
	Long: `Start a timer on a project. Only one timer runs at a time.
With no project argument the most recently tracked project is used.

Examples:
  irontrack start website
  irontrack start "Client Work" -d "fixing the deploy script"
  irontrack start`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

var startDescription string

func init() {
	startCmd.Flags().StringVarP(&startDescription, "description", "d", "", "What you are working on")
}

func runStart(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()

	var project model.Project
	if len(args) > 0 {
		project, err = resolveProject(ctx, st, args[0])
	} else {
		project, err = recentProject(ctx, st)
	}
	if err != nil {
		return err
	}

	manager := tracker.NewSessionManager(st, sync.LocalOwner)
	defer manager.Close()

	entry, err := manager.StartTracking(ctx, project.ID)
	if errors.Is(err, tracker.ErrSessionAlreadyActive) {
		active := manager.ActiveEntry()
		name := active.ProjectID
		if p, perr := st.GetProject(ctx, active.ProjectID); perr == nil {
			name = p.Name
		}
		return fmt.Errorf("already tracking [%s] since %s; use 'irontrack switch %s' or 'irontrack stop'",
			name, formatClock(active.StartTime), project.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to start tracking: %w", err)
	}

	if startDescription != "" {
		if err := manager.UpdateActiveDescription(ctx, startDescription); err != nil {
			return fmt.Errorf("failed to set description: %w", err)
		}
	}

	fmt.Printf("▶ Started [%s] at %s (entry %s)\n",
		project.Name, formatClock(entry.StartTime), shortID(entry.ID))

	MaybeSyncAfterChange(database, false)
	return nil
}

// formatClock renders a local wall-clock time for messages
func formatClock(t time.Time) string {
	return t.Local().Format("15:04")
}
