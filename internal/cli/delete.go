package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/existflow/irontrack/internal/config"
	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [entry-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a time entry",
	Long: `Delete a time entry by its ID. A unique prefix of the ID works.

Examples:
  irontrack delete 4f2a91c3
  irontrack rm 4f2a`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	projectName := entry.ProjectID
	if p, perr := st.GetProject(ctx, entry.ProjectID); perr == nil {
		projectName = p.Name
	}

	// Check config
	cfg, _ := config.Load() // Ignore error, use defaults
	if cfg.ConfirmDelete {
		fmt.Printf("About to delete %s on [%s] starting %s\n",
			tracker.FormatSpan(entry.Duration(time.Now())), projectName,
			entry.StartTime.Local().Format("Jan 2 15:04"))
		fmt.Print("Are you sure? [y/N]: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := st.DeleteEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	fmt.Printf("🗑  Deleted entry %s\n", shortID(entry.ID))

	MaybeSyncAfterChange(database, false)
	return nil
}
