package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/irontrack/internal/logger"
	"github.com/existflow/irontrack/internal/model"
)

// Store is the slice of the entry store the session manager needs. The
// sqlite-backed store satisfies it; tests use an in-memory fake.
type Store interface {
	GetProject(ctx context.Context, id string) (model.Project, error)
	GetEntry(ctx context.Context, id string) (model.TimeEntry, error)
	CreateEntry(ctx context.Context, e model.TimeEntry) (model.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error)
	ListActiveEntries(ctx context.Context, ownerID string) ([]model.TimeEntry, error)
	SubscribeEntries(ownerID string) (<-chan []model.TimeEntry, func())
}

// SessionManager owns the single active entry for one user. All mutations of
// the active entry go through it; its mutex serializes them so two rapid
// operations never interleave their store writes.
type SessionManager struct {
	store   Store
	ownerID string
	now     func() time.Time

	mu      sync.Mutex
	active  *model.TimeEntry
	elapsed string

	onChange    func()
	stopCh      chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

// Option configures a SessionManager
type Option func(*SessionManager)

// WithClock injects a clock, for tests
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

// WithOnChange registers a callback invoked whenever the active entry or the
// elapsed label changes. Called from the manager's goroutine.
func WithOnChange(fn func()) Option {
	return func(m *SessionManager) { m.onChange = fn }
}

// NewSessionManager creates a manager bound to one owner and starts its
// subscription and tick loop. Callers must Close it when the session ends.
func NewSessionManager(st Store, ownerID string, opts ...Option) *SessionManager {
	m := &SessionManager{
		store:   st,
		ownerID: ownerID,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	snapshots, cancel := st.SubscribeEntries(ownerID)
	m.unsubscribe = cancel

	// Load current state before the loop starts, so a caller can issue an
	// operation right after construction without racing the first snapshot.
	m.mu.Lock()
	m.resyncLocked(context.Background())
	m.mu.Unlock()

	go m.run(snapshots)

	return m
}

// run consumes store snapshots and drives the 1s elapsed tick. The ticker
// only runs while an entry is active.
func (m *SessionManager) run(snapshots <-chan []model.TimeEntry) {
	ticker := time.NewTicker(time.Second)
	ticker.Stop()
	ticking := false

	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			m.applySnapshot(snap)

			m.mu.Lock()
			hasActive := m.active != nil
			m.mu.Unlock()

			if hasActive && !ticking {
				ticker.Reset(time.Second)
				ticking = true
			} else if !hasActive && ticking {
				ticker.Stop()
				ticking = false
			}
			m.notify()

		case <-ticker.C:
			m.refreshElapsed()
			m.notify()

		case <-m.stopCh:
			return
		}
	}
}

// applySnapshot derives the active entry from an authoritative snapshot.
// The store is expected to hold at most one running entry per owner; if the
// invariant was violated upstream the most recently started one wins.
func (m *SessionManager) applySnapshot(entries []model.TimeEntry) {
	var running []model.TimeEntry
	for _, e := range entries {
		if e.Running() && e.DeletedAt == nil {
			running = append(running, e)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(running) == 0 {
		m.active = nil
		m.elapsed = ""
		return
	}
	if len(running) > 1 {
		logger.Warn("Multiple active entries in snapshot, picking most recent",
			logger.F("count", len(running)))
		SortEntries(running)
	}
	e := running[0]
	m.active = &e
	m.elapsed = ElapsedLabel(e.StartTime, m.now())
}

func (m *SessionManager) refreshElapsed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		m.elapsed = ""
		return
	}
	m.elapsed = ElapsedLabel(m.active.StartTime, m.now())
}

func (m *SessionManager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}

// ActiveEntry returns a copy of the active entry, or nil when idle
func (m *SessionManager) ActiveEntry() *model.TimeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	e := *m.active
	return &e
}

// Elapsed returns the current elapsed label, empty when idle
func (m *SessionManager) Elapsed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

// StartTracking begins a session on a project. It fails with
// ErrSessionAlreadyActive when something is running; the caller decides
// whether to surface that or offer SwitchTracking instead. Two active
// entries are never created.
func (m *SessionManager) StartTracking(ctx context.Context, projectID string) (model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return model.TimeEntry{}, ErrSessionAlreadyActive
	}
	return m.startLocked(ctx, projectID, "start")
}

// startLocked validates the project and creates a running entry. Callers
// hold m.mu.
func (m *SessionManager) startLocked(ctx context.Context, projectID, op string) (model.TimeEntry, error) {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil || project.OwnerID != m.ownerID {
		return model.TimeEntry{}, ErrProjectNotFound
	}

	entry := model.NewRunningEntry("", projectID, m.ownerID, m.now())
	created, err := m.store.CreateEntry(ctx, entry)
	if err != nil {
		// Nothing was mutated locally; the next snapshot is authoritative.
		m.resyncLocked(ctx)
		return model.TimeEntry{}, &StoreWriteError{Op: op, Err: err}
	}

	logger.Info("Tracking started",
		logger.F("entry", created.ID),
		logger.F("project", projectID))

	m.active = &created
	m.elapsed = ElapsedLabel(created.StartTime, m.now())
	return created, nil
}

// StopTracking ends the active session, stamping its end time
func (m *SessionManager) StopTracking(ctx context.Context) (model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx, "stop")
}

func (m *SessionManager) stopLocked(ctx context.Context, op string) (model.TimeEntry, error) {
	if m.active == nil {
		return model.TimeEntry{}, ErrNoActiveSession
	}

	end := m.now()
	updated, err := m.store.UpdateEntry(ctx, m.active.ID, model.EntryPatch{EndTime: &end})
	if err != nil {
		m.resyncLocked(ctx)
		return model.TimeEntry{}, &StoreWriteError{Op: op, Err: err}
	}

	logger.Info("Tracking stopped",
		logger.F("entry", updated.ID),
		logger.F("duration", FormatSpan(updated.Duration(end))))

	m.active = nil
	m.elapsed = ""
	return updated, nil
}

// SwitchTracking stops the active session (if any) and starts one on the new
// project, serialized under one lock so no observable state ever holds two
// active entries. The underlying store has no transactions: if the stop
// lands but the start fails the caller gets a StoreWriteError with
// Op "switch-start" and is left idle, which a retry of StartTracking
// recovers.
func (m *SessionManager) SwitchTracking(ctx context.Context, projectID string) (model.TimeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the target up front so we don't stop a session only to find
	// the new project doesn't exist.
	if project, err := m.store.GetProject(ctx, projectID); err != nil || project.OwnerID != m.ownerID {
		return model.TimeEntry{}, ErrProjectNotFound
	}

	if m.active != nil {
		if _, err := m.stopLocked(ctx, "switch-stop"); err != nil {
			return model.TimeEntry{}, err
		}
	}
	return m.startLocked(ctx, projectID, "switch-start")
}

// UpdateActiveDescription patches the description on the running entry
func (m *SessionManager) UpdateActiveDescription(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return ErrNoActiveSession
	}

	updated, err := m.store.UpdateEntry(ctx, m.active.ID, model.EntryPatch{Description: &text})
	if err != nil {
		m.resyncLocked(ctx)
		return &StoreWriteError{Op: "describe", Err: err}
	}
	m.active = &updated
	return nil
}

// EditStartTime retimes an entry's start, e.g. to correct when tracking
// really began. The new start may not be in the future, nor at or past the
// entry's end; every failed rule is reported in one ValidationErrors.
func (m *SessionManager) EditStartTime(ctx context.Context, entryID string, newStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.store.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}

	var errs ValidationErrors
	if newStart.After(m.now()) {
		errs = append(errs, ValidationError{
			Code:    CodeStartInFuture,
			Field:   "start",
			Message: "start time cannot be in the future",
		})
	}
	if entry.EndTime != nil && !newStart.Before(*entry.EndTime) {
		errs = append(errs, ValidationError{
			Code:    CodeStartAfterEnd,
			Field:   "start",
			Message: "start time must be before the end time",
		})
	}
	if len(errs) > 0 {
		return errs
	}

	updated, err := m.store.UpdateEntry(ctx, entryID, model.EntryPatch{StartTime: &newStart})
	if err != nil {
		m.resyncLocked(ctx)
		return &StoreWriteError{Op: "retime", Err: err}
	}

	if m.active != nil && m.active.ID == entryID {
		m.active = &updated
		m.elapsed = ElapsedLabel(updated.StartTime, m.now())
	}
	return nil
}

// resyncLocked reloads the active entry from the store after a failed
// write, discarding any assumption about what the write did.
func (m *SessionManager) resyncLocked(ctx context.Context) {
	running, err := m.store.ListActiveEntries(ctx, m.ownerID)
	if err != nil {
		logger.Error("Failed to resync active entry", logger.F("error", err))
		return
	}
	if len(running) == 0 {
		m.active = nil
		m.elapsed = ""
		return
	}
	SortEntries(running)
	e := running[0]
	m.active = &e
	m.elapsed = ElapsedLabel(e.StartTime, m.now())
}

// Close tears down the subscription and the tick loop. Safe to call more
// than once; required on every exit path so no timer outlives its session.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
	})
}
