package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
)

// resolveProject finds a project by exact id, case-insensitive name, or id
// prefix, in that order
func resolveProject(ctx context.Context, st *store.Store, arg string) (model.Project, error) {
	if p, err := st.GetProject(ctx, arg); err == nil {
		return p, nil
	}

	projects, err := st.ListProjects(ctx, sync.LocalOwner)
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to list projects: %w", err)
	}

	for _, p := range projects {
		if strings.EqualFold(p.Name, arg) {
			return p, nil
		}
	}
	for _, p := range projects {
		if strings.HasPrefix(p.ID, arg) {
			return p, nil
		}
	}

	return model.Project{}, fmt.Errorf("project not found: %s (create it with 'irontrack project new')", arg)
}

// recentProject returns the project of the most recently started entry, the
// default when 'start' is run without an argument
func recentProject(ctx context.Context, st *store.Store) (model.Project, error) {
	entries, err := st.ListEntries(ctx, sync.LocalOwner)
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to list entries: %w", err)
	}
	for _, e := range entries {
		if p, perr := st.GetProject(ctx, e.ProjectID); perr == nil {
			return p, nil
		}
	}
	return model.Project{}, fmt.Errorf("no recent project; specify one: irontrack start <project>")
}

// shortID truncates a UUID for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
