package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/logger"
	"github.com/existflow/irontrack/internal/model"
	"github.com/google/uuid"
)

// Store is the entry store: persistence for projects and time entries plus
// change subscriptions. Every mutation re-delivers the full current result
// set to each subscriber for the affected owner, the same contract a
// document-store snapshot listener gives a client.
type Store struct {
	db *db.DB

	mu          sync.Mutex
	entrySubs   map[int]*entrySub
	projectSubs map[int]*projectSub
	nextSub     int
}

type entrySub struct {
	ownerID string
	ch      chan []model.TimeEntry
}

type projectSub struct {
	ownerID string
	ch      chan []model.Project
}

// New creates a store over an open database
func New(database *db.DB) *Store {
	return &Store{
		db:          database,
		entrySubs:   make(map[int]*entrySub),
		projectSubs: make(map[int]*projectSub),
	}
}

// Projects

// CreateProject persists a new project and returns it with its assigned ID
func (s *Store) CreateProject(ctx context.Context, name, color, ownerID string) (model.Project, error) {
	p := model.NewProject(uuid.New().String(), name, color, ownerID)
	if err := s.db.CreateProject(ctx, p); err != nil {
		return model.Project{}, fmt.Errorf("failed to create project: %w", err)
	}
	s.notifyProjects(ownerID)
	return p, nil
}

// GetProject returns a project by ID
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	return s.db.GetProject(ctx, id)
}

// ListProjects returns the owner's live projects, pinned first
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.db.ListProjects(ctx, ownerID)
}

// RenameProject updates a project's name and color
func (s *Store) RenameProject(ctx context.Context, id, name, color string) error {
	p, err := s.db.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("project not found: %s", id)
	}
	if name != "" {
		p.Name = name
	}
	if color != "" {
		p.Color = color
	}
	if err := s.db.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	s.notifyProjects(p.OwnerID)
	return nil
}

// SetProjectPinned toggles the quick-access pin flag
func (s *Store) SetProjectPinned(ctx context.Context, id string, pinned bool) error {
	p, err := s.db.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("project not found: %s", id)
	}
	p.IsPinned = pinned
	if err := s.db.UpdateProject(ctx, p); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	s.notifyProjects(p.OwnerID)
	return nil
}

// DeleteProject soft-deletes a project. Entries referencing it are left in
// place; views render them with an unknown-project placeholder.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	p, err := s.db.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("project not found: %s", id)
	}
	if err := s.db.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.notifyProjects(p.OwnerID)
	return nil
}

// ProjectMap returns live projects keyed by ID, for name/color resolution
func (s *Store) ProjectMap(ctx context.Context, ownerID string) (map[string]model.Project, error) {
	projects, err := s.db.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		m[p.ID] = p
	}
	return m, nil
}

// Time entries

// CreateEntry persists a new time entry, assigning ID and timestamps
func (s *Store) CreateEntry(ctx context.Context, e model.TimeEntry) (model.TimeEntry, error) {
	e.ID = uuid.New().String()
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.IsActive = e.EndTime == nil
	if err := s.db.CreateEntry(ctx, e); err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to create entry: %w", err)
	}
	s.notifyEntries(e.OwnerID)
	return e, nil
}

// UpdateEntry applies a partial update to an entry
func (s *Store) UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	e, err := s.db.GetEntry(ctx, id)
	if err != nil {
		return model.TimeEntry{}, fmt.Errorf("entry not found: %s", id)
	}

	if patch.ProjectID != nil {
		e.ProjectID = *patch.ProjectID
	}
	if patch.StartTime != nil {
		e.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		e.EndTime = patch.EndTime
	}
	if patch.Description != nil {
		e.Description = strings.TrimSpace(*patch.Description)
	}
	e.IsActive = e.EndTime == nil
	e.UpdatedAt = time.Now()

	if err := s.db.UpdateEntry(ctx, e); err != nil {
		return model.TimeEntry{}, fmt.Errorf("failed to update entry: %w", err)
	}
	s.notifyEntries(e.OwnerID)
	return e, nil
}

// DeleteEntry soft-deletes an entry
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	e, err := s.db.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("entry not found: %s", id)
	}
	if err := s.db.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	s.notifyEntries(e.OwnerID)
	return nil
}

// GetEntry returns an entry by ID
func (s *Store) GetEntry(ctx context.Context, id string) (model.TimeEntry, error) {
	return s.db.GetEntry(ctx, id)
}

// ResolveEntry resolves an entry by full ID or unique short prefix
func (s *Store) ResolveEntry(ctx context.Context, idOrPrefix string) (model.TimeEntry, error) {
	if len(idOrPrefix) >= 36 {
		return s.db.GetEntry(ctx, idOrPrefix)
	}
	return s.db.GetEntryPartial(ctx, idOrPrefix)
}

// ListEntries returns the owner's live entries, newest start first
func (s *Store) ListEntries(ctx context.Context, ownerID string) ([]model.TimeEntry, error) {
	return s.db.ListEntries(ctx, ownerID)
}

// ListActiveEntries returns the owner's running entries
func (s *Store) ListActiveEntries(ctx context.Context, ownerID string) ([]model.TimeEntry, error) {
	return s.db.ListActiveEntries(ctx, ownerID)
}

// Subscriptions

// SubscribeEntries registers for entry snapshots for one owner. The current
// result set is delivered immediately, then again after every change. The
// returned func unregisters; the channel is closed on unsubscribe.
func (s *Store) SubscribeEntries(ownerID string) (<-chan []model.TimeEntry, func()) {
	sub := &entrySub{ownerID: ownerID, ch: make(chan []model.TimeEntry, 1)}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.entrySubs[id] = sub
	s.mu.Unlock()

	// Initial snapshot
	if entries, err := s.db.ListEntries(context.Background(), ownerID); err == nil {
		sub.ch <- entries
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.entrySubs[id]; ok {
			delete(s.entrySubs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// SubscribeProjects registers for project snapshots for one owner
func (s *Store) SubscribeProjects(ownerID string) (<-chan []model.Project, func()) {
	sub := &projectSub{ownerID: ownerID, ch: make(chan []model.Project, 1)}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.projectSubs[id] = sub
	s.mu.Unlock()

	if projects, err := s.db.ListProjects(context.Background(), ownerID); err == nil {
		sub.ch <- projects
	}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.projectSubs[id]; ok {
			delete(s.projectSubs, id)
			close(sub.ch)
		}
		s.mu.Unlock()
	}
	return sub.ch, cancel
}

// NotifyExternalChange re-delivers snapshots after out-of-band writes, such
// as a sync pull landing remote changes directly in the database.
func (s *Store) NotifyExternalChange(ownerID string) {
	s.notifyProjects(ownerID)
	s.notifyEntries(ownerID)
}

// notifyEntries re-queries and pushes the full entry set to matching
// subscribers. Stale undelivered snapshots are dropped in favor of the
// newest one so a slow consumer never blocks a write.
func (s *Store) notifyEntries(ownerID string) {
	entries, err := s.db.ListEntries(context.Background(), ownerID)
	if err != nil {
		logger.Error("Failed to load entries for notification", logger.F("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.entrySubs {
		if sub.ownerID != ownerID {
			continue
		}
		select {
		case sub.ch <- entries:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- entries
		}
	}
}

func (s *Store) notifyProjects(ownerID string) {
	projects, err := s.db.ListProjects(context.Background(), ownerID)
	if err != nil {
		logger.Error("Failed to load projects for notification", logger.F("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.projectSubs {
		if sub.ownerID != ownerID {
			continue
		}
		select {
		case sub.ch <- projects:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- projects
		}
	}
}
