package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/irontrack/internal/model"
)

// fakeStore is an in-memory Store. Its subscription channel never delivers,
// so manager state changes in tests come only from the operations under
// test and stay deterministic.
type fakeStore struct {
	mu       sync.Mutex
	projects map[string]model.Project
	entries  map[string]model.TimeEntry
	nextID   int

	failCreate error
	failUpdate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: map[string]model.Project{
			"p1": {ID: "p1", Name: "Alpha", OwnerID: "u1"},
			"p2": {ID: "p2", Name: "Beta", OwnerID: "u1"},
			"px": {ID: "px", Name: "NotMine", OwnerID: "someone-else"},
		},
		entries: make(map[string]model.TimeEntry),
	}
}

func (f *fakeStore) GetProject(_ context.Context, id string) (model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return model.Project{}, errors.New("not found")
	}
	return p, nil
}

func (f *fakeStore) GetEntry(_ context.Context, id string) (model.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return model.TimeEntry{}, errors.New("not found")
	}
	return e, nil
}

func (f *fakeStore) CreateEntry(_ context.Context, e model.TimeEntry) (model.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return model.TimeEntry{}, f.failCreate
	}
	f.nextID++
	e.ID = fmt.Sprintf("entry-%d", f.nextID)
	e.IsActive = e.EndTime == nil
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeStore) UpdateEntry(_ context.Context, id string, patch model.EntryPatch) (model.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return model.TimeEntry{}, f.failUpdate
	}
	e, ok := f.entries[id]
	if !ok {
		return model.TimeEntry{}, errors.New("not found")
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
	f.entries[id] = e
	return e, nil
}

func (f *fakeStore) ListActiveEntries(_ context.Context, ownerID string) ([]model.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TimeEntry
	for _, e := range f.entries {
		if e.OwnerID == ownerID && e.Running() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) SubscribeEntries(string) (<-chan []model.TimeEntry, func()) {
	return make(chan []model.TimeEntry), func() {}
}

func (f *fakeStore) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Running() {
			n++
		}
	}
	return n
}

// testClock is a settable clock
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newManager(t *testing.T, st Store, clock *testClock) *SessionManager {
	t.Helper()
	m := NewSessionManager(st, "u1", WithClock(clock.now))
	t.Cleanup(m.Close)
	return m
}

func TestStartStopCycle(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, st, clock)
	ctx := context.Background()
	t0 := clock.now()

	started, err := m.StartTracking(ctx, "p1")
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if !started.StartTime.Equal(t0) || !started.Running() {
		t.Errorf("bad started entry: %+v", started)
	}
	if active := m.ActiveEntry(); active == nil || active.ID != started.ID {
		t.Error("active entry not set after start")
	}

	clock.advance(90 * time.Second)
	stopped, err := m.StopTracking(ctx)
	if err != nil {
		t.Fatalf("StopTracking: %v", err)
	}
	if stopped.EndTime == nil || !stopped.EndTime.Equal(t0.Add(90*time.Second)) {
		t.Errorf("bad end time: %v", stopped.EndTime)
	}
	if stopped.IsActive {
		t.Error("stopped entry still flagged active")
	}
	// 90s rounds half-up to 2 minutes
	if got := FormatSpan(stopped.Duration(clock.now())); got != "2m" {
		t.Errorf("duration label = %q, want 2m", got)
	}
	if m.ActiveEntry() != nil {
		t.Error("active entry not cleared after stop")
	}
	if m.Elapsed() != "" {
		t.Error("elapsed label not cleared after stop")
	}
}

func TestStartWhileActiveRejected(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, st, clock)
	ctx := context.Background()

	if _, err := m.StartTracking(ctx, "p1"); err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if _, err := m.StartTracking(ctx, "p2"); !errors.Is(err, ErrSessionAlreadyActive) {
		t.Fatalf("expected ErrSessionAlreadyActive, got %v", err)
	}
	if st.activeCount() != 1 {
		t.Fatalf("active count = %d, want 1", st.activeCount())
	}
}

func TestStopWithoutActive(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)

	if _, err := m.StopTracking(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestStartUnknownProject(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)

	if _, err := m.StartTracking(context.Background(), "nope"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	// A project owned by another user is just as invalid
	if _, err := m.StartTracking(context.Background(), "px"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound for foreign project, got %v", err)
	}
}

func TestSwitchTracking(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &testClock{t: t0}
	m := newManager(t, st, clock)
	ctx := context.Background()

	first, err := m.StartTracking(ctx, "p1")
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}

	clock.advance(5 * time.Minute)
	second, err := m.SwitchTracking(ctx, "p2")
	if err != nil {
		t.Fatalf("SwitchTracking: %v", err)
	}

	if st.activeCount() != 1 {
		t.Fatalf("active count = %d, want 1", st.activeCount())
	}

	stopped, _ := st.GetEntry(ctx, first.ID)
	if stopped.EndTime == nil || !stopped.EndTime.Equal(t0.Add(5*time.Minute)) {
		t.Errorf("first entry end = %v, want T0+5m", stopped.EndTime)
	}
	if second.ProjectID != "p2" || !second.StartTime.Equal(t0.Add(5*time.Minute)) {
		t.Errorf("bad switched entry: %+v", second)
	}
}

func TestSwitchWhileIdleJustStarts(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)

	entry, err := m.SwitchTracking(context.Background(), "p1")
	if err != nil {
		t.Fatalf("SwitchTracking from idle: %v", err)
	}
	if entry.ProjectID != "p1" || st.activeCount() != 1 {
		t.Errorf("switch from idle did not start cleanly")
	}
}

func TestSwitchPartialFailure(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)
	ctx := context.Background()

	if _, err := m.StartTracking(ctx, "p1"); err != nil {
		t.Fatalf("StartTracking: %v", err)
	}

	// Stop will land, the follow-up create fails
	st.failCreate = errors.New("network down")
	_, err := m.SwitchTracking(ctx, "p2")

	var writeErr *StoreWriteError
	if !errors.As(err, &writeErr) || writeErr.Op != "switch-start" {
		t.Fatalf("expected StoreWriteError op=switch-start, got %v", err)
	}
	// Recoverable state: nothing active, never two active
	if st.activeCount() != 0 {
		t.Fatalf("active count = %d after partial switch, want 0", st.activeCount())
	}
	if m.ActiveEntry() != nil {
		t.Error("manager still reports an active entry")
	}

	// Retrying the start recovers
	st.failCreate = nil
	if _, err := m.StartTracking(ctx, "p2"); err != nil {
		t.Fatalf("recovery start: %v", err)
	}
	if st.activeCount() != 1 {
		t.Fatal("recovery did not produce one active entry")
	}
}

func TestStartFailureLeavesStateClean(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)

	st.failCreate = errors.New("permission denied")
	_, err := m.StartTracking(context.Background(), "p1")

	var writeErr *StoreWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected StoreWriteError, got %v", err)
	}
	if m.ActiveEntry() != nil {
		t.Error("failed start must not leave optimistic active state")
	}
}

func TestAtMostOneActiveInvariant(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, st, clock)
	ctx := context.Background()

	ops := []func() error{
		func() error { _, err := m.StartTracking(ctx, "p1"); return err },
		func() error { _, err := m.SwitchTracking(ctx, "p2"); return err },
		func() error { _, err := m.SwitchTracking(ctx, "p1"); return err },
		func() error { _, err := m.StopTracking(ctx); return err },
		func() error { _, err := m.StopTracking(ctx); return err },
		func() error { _, err := m.StartTracking(ctx, "p2"); return err },
		func() error { _, err := m.StartTracking(ctx, "p1"); return err },
		func() error { _, err := m.SwitchTracking(ctx, "p1"); return err },
		func() error { _, err := m.StopTracking(ctx); return err },
	}

	for i, op := range ops {
		_ = op() // precondition errors are expected along the way
		clock.advance(time.Minute)
		if n := st.activeCount(); n > 1 {
			t.Fatalf("after op %d: %d active entries", i, n)
		}
	}
}

func TestUpdateActiveDescription(t *testing.T) {
	st := newFakeStore()
	clock := &testClock{t: time.Now()}
	m := newManager(t, st, clock)
	ctx := context.Background()

	if err := m.UpdateActiveDescription(ctx, "x"); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	started, _ := m.StartTracking(ctx, "p1")
	if err := m.UpdateActiveDescription(ctx, "  standup notes  "); err != nil {
		t.Fatalf("UpdateActiveDescription: %v", err)
	}

	e, _ := st.GetEntry(ctx, started.ID)
	if e.Description != "standup notes" {
		t.Errorf("description = %q", e.Description)
	}
	if active := m.ActiveEntry(); active.Description != "standup notes" {
		t.Errorf("local active copy stale: %q", active.Description)
	}
}

func TestEditStartTime(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &testClock{t: t0}
	m := newManager(t, st, clock)
	ctx := context.Background()

	started, _ := m.StartTracking(ctx, "p1")
	clock.advance(10 * time.Minute)

	// Future start rejected
	err := m.EditStartTime(ctx, started.ID, clock.now().Add(time.Hour))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || !verrs.Has(CodeStartInFuture) {
		t.Fatalf("expected StartInFuture, got %v", err)
	}

	// Valid correction: tracking actually began 30 minutes before T0
	corrected := t0.Add(-30 * time.Minute)
	if err := m.EditStartTime(ctx, started.ID, corrected); err != nil {
		t.Fatalf("EditStartTime: %v", err)
	}
	if active := m.ActiveEntry(); !active.StartTime.Equal(corrected) {
		t.Errorf("start not updated: %v", active.StartTime)
	}

	// Completed entry: start at or past end rejected. A start that is also
	// in the future reports both failures at once.
	stopped, _ := m.StopTracking(ctx)
	err = m.EditStartTime(ctx, stopped.ID, stopped.EndTime.Add(time.Minute))
	if !errors.As(err, &verrs) || !verrs.Has(CodeStartAfterEnd) {
		t.Fatalf("expected StartAfterEnd, got %v", err)
	}
	if !verrs.Has(CodeStartInFuture) {
		t.Errorf("expected StartInFuture reported alongside StartAfterEnd, got %v", verrs)
	}

	// Past the end but not in the future: only the end rule fires
	clock.advance(time.Hour)
	err = m.EditStartTime(ctx, stopped.ID, stopped.EndTime.Add(time.Minute))
	if !errors.As(err, &verrs) || !verrs.Has(CodeStartAfterEnd) {
		t.Fatalf("expected StartAfterEnd, got %v", err)
	}
	if verrs.Has(CodeStartInFuture) {
		t.Errorf("StartInFuture reported for a past start: %v", verrs)
	}
}

func TestApplySnapshotPicksCanonicalActive(t *testing.T) {
	st := newFakeStore()
	t0 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := &testClock{t: t0.Add(time.Hour)}
	m := newManager(t, st, clock)

	// Upstream invariant violation: two running entries. The most recently
	// started one wins.
	older := model.NewRunningEntry("e-old", "p1", "u1", t0)
	newer := model.NewRunningEntry("e-new", "p2", "u1", t0.Add(30*time.Minute))
	m.applySnapshot([]model.TimeEntry{older, newer})

	active := m.ActiveEntry()
	if active == nil || active.ID != "e-new" {
		t.Fatalf("canonical active = %+v, want e-new", active)
	}
	if m.Elapsed() == "" {
		t.Error("elapsed label empty while active")
	}

	// Empty snapshot clears everything
	m.applySnapshot(nil)
	if m.ActiveEntry() != nil || m.Elapsed() != "" {
		t.Error("snapshot without running entries must clear state")
	}
}
