package cli

import (
	"context"
	"testing"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
)

// seedEntry creates a project and one completed entry in a database rooted
// under a throwaway home directory.
func seedEntry(t *testing.T, start, end time.Time) model.TimeEntry {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	database, err := db.OpenDefault()
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer database.Close()

	st := store.New(database)
	ctx := context.Background()

	p, err := st.CreateProject(ctx, "Client", "", sync.LocalOwner)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	entry, err := st.CreateEntry(ctx, model.NewCompletedEntry("", p.ID, sync.LocalOwner, start, end, "call"))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return entry
}

func TestEditCommandRetimesEntry(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	entry := seedEntry(t, now.Add(-2*time.Hour), now.Add(-time.Hour))

	newStart := now.Add(-3 * time.Hour)
	editStart = newStart.Format(time.RFC3339)
	if err := runEdit(editCmd, []string{entry.ID[:8]}); err != nil {
		t.Fatalf("runEdit: %v", err)
	}

	database, err := db.OpenDefault()
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer database.Close()

	got, err := store.New(database).GetEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.StartTime.Unix() != newStart.Unix() {
		t.Errorf("start not retimed: got %v, want %v", got.StartTime, newStart)
	}
	if got.EndTime == nil || got.EndTime.Unix() != entry.EndTime.Unix() {
		t.Errorf("end time changed: %v", got.EndTime)
	}
}

func TestEditCommandRejectsInvalidStart(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	entry := seedEntry(t, now.Add(-2*time.Hour), now.Add(-time.Hour))

	// A start in the future must leave the entry untouched
	editStart = now.Add(time.Hour).Format(time.RFC3339)
	if err := runEdit(editCmd, []string{entry.ID[:8]}); err == nil {
		t.Fatal("expected validation error for future start")
	}

	database, err := db.OpenDefault()
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer database.Close()

	got, err := store.New(database).GetEntry(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.StartTime.Unix() != entry.StartTime.Unix() {
		t.Errorf("rejected edit still changed start: %v", got.StartTime)
	}
}

func TestEditCommandUnknownEntry(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	seedEntry(t, now.Add(-2*time.Hour), now.Add(-time.Hour))

	editStart = now.Add(-3 * time.Hour).Format(time.RFC3339)
	if err := runEdit(editCmd, []string{"ffffffff"}); err == nil {
		t.Fatal("expected error for unknown entry prefix")
	}
}
