package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list, and manage the projects time is tracked against.`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Long: `Create a new project.

Examples:
  irontrack project new "Website"
  irontrack project new "Client Work" --color "#FF6B6B"`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all projects",
	RunE:    runProjectList,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project]",
	Aliases: []string{"rm"},
	Short:   "Delete a project",
	Long: `Delete a project. Its time entries are kept and keep counting
toward totals; they show a placeholder where the project name was.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectDelete,
}

var projectPinCmd = &cobra.Command{
	Use:   "pin [project]",
	Short: "Pin or unpin a project",
	Long:  `Toggle a project's pin. Pinned projects sort first in lists.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectPin,
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename [project] [new-name]",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectRename,
}

var projectColor string

func init() {
	projectNewCmd.Flags().StringVarP(&projectColor, "color", "c", model.DefaultColor, "Project color (hex)")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectPinCmd)
	projectCmd.AddCommand(projectRenameCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)

	p, err := st.CreateProject(context.Background(), args[0], projectColor, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Printf("✓ Created project: %s (id: %s)\n", p.Name, shortID(p.ID))

	MaybeSyncAfterChange(database, false)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()
	now := time.Now()

	projects, err := st.ListProjects(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found. Create one with: irontrack project new \"Name\"")
		return nil
	}

	entries, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	totals := tracker.GroupByProject(entries, now)

	fmt.Println()
	fmt.Printf("  %-8s  %-24s  %-8s  %s\n", "ID", "Name", "Color", "Tracked")
	fmt.Println(strings.Repeat("─", 56))

	for _, p := range projects {
		name := p.Name
		if p.IsPinned {
			name = "📌 " + name
		}
		fmt.Printf("  %-8s  %-24s  %-8s  %s\n",
			shortID(p.ID), name, p.Color, tracker.FormatDuration(totals[p.ID]))
	}

	fmt.Println(strings.Repeat("─", 56))
	fmt.Printf("  %d projects\n\n", len(projects))

	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
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

	if err := st.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Printf("🗑  Deleted project: %s (its entries are kept)\n", project.Name)

	MaybeSyncAfterChange(database, false)
	return nil
}

func runProjectPin(cmd *cobra.Command, args []string) error {
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

	if err := st.SetProjectPinned(ctx, project.ID, !project.IsPinned); err != nil {
		return fmt.Errorf("failed to update pin: %w", err)
	}

	if project.IsPinned {
		fmt.Printf("✓ Unpinned: %s\n", project.Name)
	} else {
		fmt.Printf("📌 Pinned: %s\n", project.Name)
	}

	MaybeSyncAfterChange(database, false)
	return nil
}

func runProjectRename(cmd *cobra.Command, args []string) error {
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

	if err := st.RenameProject(ctx, project.ID, args[1], project.Color); err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}

	fmt.Printf("✓ Renamed %q to %q\n", project.Name, args[1])

	MaybeSyncAfterChange(database, false)
	return nil
}
