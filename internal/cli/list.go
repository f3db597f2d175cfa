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

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List time entries",
	Long: `List time entries, newest first, optionally filtered.

Examples:
  irontrack list
  irontrack list --project website
  irontrack list --day 2026-08-30
  irontrack list --search "deploy"`,
	RunE: runList,
}

var (
	listProject string
	listDay     string
	listSearch  string
	listSync    bool
)

func init() {
	listCmd.Flags().StringVarP(&listProject, "project", "P", "", "Filter by project")
	listCmd.Flags().StringVar(&listDay, "day", "", "Only entries touching this day (YYYY-MM-DD)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Match project name or description")
	listCmd.Flags().BoolVar(&listSync, "sync", false, "Sync with server before listing")
}

func runList(cmd *cobra.Command, args []string) error {
	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	// Sync before listing if flag is set or auto-sync is due
	MaybeSyncCLI(database, listSync)

	st := store.New(database)
	ctx := context.Background()
	now := time.Now()

	entries, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	projects, err := st.ProjectMap(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	f := tracker.Filter{Search: listSearch}
	if listProject != "" {
		p, err := resolveProject(ctx, st, listProject)
		if err != nil {
			return err
		}
		f.ProjectID = p.ID
	}
	if listDay != "" {
		day, err := time.ParseInLocation("2006-01-02", listDay, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --day: %w", err)
		}
		f.From, f.To = tracker.DayRange(day)
	}

	filtered := tracker.FilterEntries(entries, projects, f, now)
	if len(filtered) == 0 {
		fmt.Println("No entries found. Start a timer with: irontrack start <project>")
		return nil
	}
	tracker.SortEntries(filtered)

	fmt.Println()
	fmt.Printf("  %-8s  %-18s  %-13s  %-8s  %s\n", "ID", "Project", "Time", "Length", "Description")
	fmt.Println(strings.Repeat("─", 76))

	for _, e := range filtered {
		printEntry(e, projects, now)
	}

	fmt.Println(strings.Repeat("─", 76))
	fmt.Printf("  %d entries, %s total\n\n",
		len(filtered), tracker.FormatSpan(tracker.TotalDuration(filtered, now)))

	return nil
}

func printEntry(e model.TimeEntry, projects map[string]model.Project, now time.Time) {
	name := e.ProjectID
	if p, ok := projects[e.ProjectID]; ok {
		name = p.Name
	}
	if len(name) > 18 {
		name = name[:15] + "..."
	}

	span := e.StartTime.Local().Format("Jan 2 15:04")
	length := "▶ " + tracker.ElapsedLabel(e.StartTime, now)
	if e.EndTime != nil {
		span = fmt.Sprintf("%s–%s", e.StartTime.Local().Format("Jan 2 15:04"), formatClock(*e.EndTime))
		length = tracker.FormatSpan(e.Duration(now))
	}

	desc := e.Description
	if len(desc) > 30 {
		desc = desc[:27] + "..."
	}

	fmt.Printf("  %-8s  %-18s  %-13s  %-8s  %s\n", shortID(e.ID), name, span, length, desc)
}
