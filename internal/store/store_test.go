package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
)

const testOwner = "local"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return New(database)
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "Website", "#FF6B6B", testOwner)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected assigned project ID")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Name != "Website" || got.Color != "#FF6B6B" {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := s.RenameProject(ctx, p.ID, "Site", ""); err != nil {
		t.Fatalf("rename project: %v", err)
	}
	got, _ = s.GetProject(ctx, p.ID)
	if got.Name != "Site" {
		t.Errorf("rename not applied, got %q", got.Name)
	}
	if got.Color != "#FF6B6B" {
		t.Errorf("empty color should keep existing, got %q", got.Color)
	}

	if err := s.SetProjectPinned(ctx, p.ID, true); err != nil {
		t.Fatalf("pin project: %v", err)
	}
	got, _ = s.GetProject(ctx, p.ID)
	if !got.IsPinned {
		t.Error("expected project pinned")
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	projects, err := s.ListProjects(ctx, testOwner)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("deleted project still listed: %d", len(projects))
	}
}

func TestPinnedProjectsSortFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateProject(ctx, "Alpha", "", testOwner)
	b, _ := s.CreateProject(ctx, "Beta", "", testOwner)
	_ = a

	if err := s.SetProjectPinned(ctx, b.ID, true); err != nil {
		t.Fatalf("pin: %v", err)
	}

	projects, err := s.ListProjects(ctx, testOwner)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ID != b.ID {
		t.Errorf("pinned project should sort first, got %q", projects[0].Name)
	}
}

func TestEntryLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "Client", "", testOwner)

	start := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	entry, err := s.CreateEntry(ctx, model.NewRunningEntry("", p.ID, testOwner, start))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected assigned entry ID")
	}

	active, err := s.ListActiveEntries(ctx, testOwner)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != entry.ID {
		t.Fatalf("expected one active entry, got %d", len(active))
	}

	end := start.Add(90 * time.Minute)
	desc := "  billable work  "
	updated, err := s.UpdateEntry(ctx, entry.ID, model.EntryPatch{
		EndTime:     &end,
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if updated.EndTime == nil || !updated.EndTime.Equal(end) {
		t.Errorf("end time not applied: %v", updated.EndTime)
	}
	if updated.Description != "billable work" {
		t.Errorf("description should be trimmed, got %q", updated.Description)
	}
	if updated.IsActive {
		t.Error("completed entry still marked active")
	}

	active, _ = s.ListActiveEntries(ctx, testOwner)
	if len(active) != 0 {
		t.Errorf("expected no active entries after stop, got %d", len(active))
	}

	if err := s.DeleteEntry(ctx, entry.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	entries, _ := s.ListEntries(ctx, testOwner)
	if len(entries) != 0 {
		t.Errorf("deleted entry still listed: %d", len(entries))
	}
}

func TestResolveEntryByPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "Client", "", testOwner)
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(-30 * time.Minute)
	entry, err := s.CreateEntry(ctx, model.NewCompletedEntry("", p.ID, testOwner, start, end, "call"))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	got, err := s.ResolveEntry(ctx, entry.ID[:8])
	if err != nil {
		t.Fatalf("resolve by prefix: %v", err)
	}
	if got.ID != entry.ID {
		t.Errorf("resolved wrong entry: %s", got.ID)
	}

	got, err = s.ResolveEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("resolve by full ID: %v", err)
	}
	if got.ID != entry.ID {
		t.Errorf("resolved wrong entry: %s", got.ID)
	}

	if _, err := s.ResolveEntry(ctx, "ffffffff"); err == nil {
		t.Error("expected error for unknown prefix")
	}
}

func TestEntriesSortNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "Client", "", testOwner)
	base := time.Now().Add(-6 * time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		end := start.Add(30 * time.Minute)
		if _, err := s.CreateEntry(ctx, model.NewCompletedEntry("", p.ID, testOwner, start, end, "")); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	entries, err := s.ListEntries(ctx, testOwner)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].StartTime.After(entries[i-1].StartTime) {
			t.Errorf("entries not newest-first at index %d", i)
		}
	}
}

func TestSubscribeEntriesDeliversSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "Client", "", testOwner)

	ch, cancel := s.SubscribeEntries(testOwner)
	defer cancel()

	// Initial snapshot is delivered on subscribe
	select {
	case entries := <-ch:
		if len(entries) != 0 {
			t.Errorf("expected empty initial snapshot, got %d entries", len(entries))
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	entry, err := s.CreateEntry(ctx, model.NewRunningEntry("", p.ID, testOwner, time.Now()))
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	select {
	case entries := <-ch:
		if len(entries) != 1 || entries[0].ID != entry.ID {
			t.Errorf("snapshot after create mismatch: %d entries", len(entries))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}

	// Writes for other owners do not wake this subscriber
	other, _ := s.CreateProject(ctx, "Other", "", "someone-else")
	if _, err := s.CreateEntry(ctx, model.NewRunningEntry("", other.ID, "someone-else", time.Now())); err != nil {
		t.Fatalf("create foreign entry: %v", err)
	}
	select {
	case <-ch:
		t.Error("received snapshot for another owner's write")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeCoalescesBurstWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.CreateProject(ctx, "Client", "", testOwner)

	ch, cancel := s.SubscribeEntries(testOwner)
	defer cancel()
	<-ch // drain initial snapshot

	// A burst of writes with no consumer must not block; the channel keeps
	// only the newest snapshot.
	for i := 0; i < 5; i++ {
		start := time.Now().Add(time.Duration(-i) * time.Hour)
		end := start.Add(time.Minute)
		if _, err := s.CreateEntry(ctx, model.NewCompletedEntry("", p.ID, testOwner, start, end, "")); err != nil {
			t.Fatalf("create entry %d: %v", i, err)
		}
	}

	select {
	case entries := <-ch:
		if len(entries) != 5 {
			t.Errorf("expected newest snapshot with 5 entries, got %d", len(entries))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after burst")
	}
}

func TestNotifyExternalChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, cancel := s.SubscribeProjects(testOwner)
	defer cancel()
	<-ch // initial snapshot

	// Write behind the store's back, as a sync pull does
	p := model.NewProject("p-external", "Pulled", "", testOwner)
	if err := s.db.CreateProject(ctx, p); err != nil {
		t.Fatalf("direct create: %v", err)
	}

	s.NotifyExternalChange(testOwner)

	select {
	case projects := <-ch:
		if len(projects) != 1 || projects[0].ID != "p-external" {
			t.Errorf("external change not reflected: %d projects", len(projects))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after external change")
	}
}
