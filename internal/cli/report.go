package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize tracked time",
	Long: `Summarize tracked time grouped by project or by day.

Examples:
  irontrack report
  irontrack report --by day
  irontrack report --from 2026-08-01 --to 2026-08-31`,
	RunE: runReport,
}

var (
	reportBy   string
	reportFrom string
	reportTo   string
)

func init() {
	reportCmd.Flags().StringVar(&reportBy, "by", "project", "Group by 'project' or 'day'")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Range start (YYYY-MM-DD), default last 7 days")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Range end (YYYY-MM-DD), default today")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportBy != "project" && reportBy != "day" {
		return fmt.Errorf("--by must be 'project' or 'day'")
	}

	database, err := db.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()
	now := time.Now()

	from, _ := tracker.DayRange(now.AddDate(0, 0, -6))
	_, to := tracker.DayRange(now)
	if reportFrom != "" {
		day, err := time.ParseInLocation("2006-01-02", reportFrom, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		from, _ = tracker.DayRange(day)
	}
	if reportTo != "" {
		day, err := time.ParseInLocation("2006-01-02", reportTo, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		_, to = tracker.DayRange(day)
	}

	entries, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	projects, err := st.ProjectMap(ctx, sync.LocalOwner)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	filtered := tracker.FilterEntries(entries, projects, tracker.Filter{From: from, To: to}, now)
	if len(filtered) == 0 {
		fmt.Println("Nothing tracked in this range.")
		return nil
	}

	fmt.Printf("\n%s – %s\n", from.Format("Jan 2"), to.Format("Jan 2 2006"))
	fmt.Println(strings.Repeat("─", 44))

	if reportBy == "day" {
		printDayReport(filtered, projects, now)
	} else {
		printProjectReport(filtered, projects, now)
	}

	total := tracker.TotalDuration(filtered, now)
	fmt.Println(strings.Repeat("─", 44))
	fmt.Printf("  %-28s  %s\n\n", "Total", tracker.FormatSpan(total))

	return nil
}

func printProjectReport(entries []model.TimeEntry, projects map[string]model.Project, now time.Time) {
	totals := tracker.GroupByProject(entries, now)

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	// Largest share first
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] > totals[ids[j]]
		}
		return ids[i] < ids[j]
	})

	for _, id := range ids {
		name := id
		if p, ok := projects[id]; ok {
			name = p.Name
		}
		fmt.Printf("  %-28s  %s\n", name, tracker.FormatDuration(totals[id]))
	}
}

func printDayReport(entries []model.TimeEntry, projects map[string]model.Project, now time.Time) {
	days := tracker.GroupByDay(entries, projects, now)

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		day := days[k]
		marks := strings.Repeat("•", len(day.Colors))
		fmt.Printf("  %-28s  %-8s %s\n", k, tracker.FormatSpan(day.Total), marks)
	}
}
