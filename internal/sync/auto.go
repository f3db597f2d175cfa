package sync

import (
	"sync"
	"time"

	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/logger"
)

const (
	defaultDebounce = 5 * time.Second  // Wait after the last local change before pushing
	defaultPoll     = 30 * time.Second // How often to look for remote changes
)

// AutoSync runs background syncing for a logged-in device. Local writes are
// debounced into one push; a poll loop picks up changes made on other
// devices. All network work happens on one goroutine so two syncs never run
// concurrently.
type AutoSync struct {
	client *Client
	db     *db.DB

	debounceTime time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	pending bool
	onPull  func() // Invoked after remote changes landed locally

	kickCh chan struct{}
	stopCh chan struct{}
}

// NewAutoSync creates and starts an auto-sync manager
func NewAutoSync(client *Client, database *db.DB) *AutoSync {
	a := &AutoSync{
		client:       client,
		db:           database,
		debounceTime: defaultDebounce,
		pollInterval: defaultPoll,
		kickCh:       make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}

	go a.loop()

	return a
}

// SetOnPull sets a callback invoked when remote changes are pulled, so the
// UI can reload from the store
func (a *AutoSync) SetOnPull(callback func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onPull = callback
}

// TriggerSync notes that local data changed. The actual push happens after
// the debounce window, folding bursts of edits into one request.
func (a *AutoSync) TriggerSync() {
	if !a.client.CanAutoSync() {
		return
	}

	a.mu.Lock()
	a.pending = true
	a.mu.Unlock()

	select {
	case a.kickCh <- struct{}{}:
	default:
	}
}

// loop owns all sync execution. A poll tick merges both directions; a kick
// arms the debounce timer and a later firing pushes the batched changes.
func (a *AutoSync) loop() {
	poll := time.NewTicker(a.pollInterval)
	defer poll.Stop()

	debounce := time.NewTimer(a.debounceTime)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()
	armed := false

	for {
		select {
		case <-a.kickCh:
			if !armed {
				debounce.Reset(a.debounceTime)
				armed = true
			}

		case <-debounce.C:
			armed = false
			a.runSync()

		case <-poll.C:
			if a.client.CanAutoSync() {
				a.runSync()
			}

		case <-a.stopCh:
			return
		}
	}
}

// runSync performs one merge sync and fires onPull if anything came down
func (a *AutoSync) runSync() {
	a.mu.Lock()
	a.pending = false
	a.mu.Unlock()

	result, err := a.client.Sync(a.db, SyncModeMerge)
	if err != nil {
		logger.Debug("Background sync failed", logger.F("error", err))
		return
	}

	if result.Pulled > 0 {
		a.mu.Lock()
		callback := a.onPull
		a.mu.Unlock()

		if callback != nil {
			callback()
		}
	}
}

// SyncNowIfPending flushes a pending debounced sync immediately. Called on
// shutdown so the last edits of a session still reach the server.
func (a *AutoSync) SyncNowIfPending() error {
	a.mu.Lock()
	isPending := a.pending
	a.pending = false
	a.mu.Unlock()

	if !isPending {
		return nil
	}

	_, err := a.client.Sync(a.db, SyncModeMerge)
	return err
}

// IsPending returns true if a sync is scheduled or running
func (a *AutoSync) IsPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Stop terminates the background loop
func (a *AutoSync) Stop() {
	close(a.stopCh)
}
