package tui

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/irontrack/internal/db"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/store"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
)

// Pane represents which pane is focused
type Pane int

const (
	PaneSidebar Pane = iota
	PaneEntries
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddEntry
	ModeAddProject
	ModeDescribe
	ModeFilter
	ModeConfirmSwitch
	ModeHelp
)

// Model is the main TUI model
type Model struct {
	db      *db.DB
	store   *store.Store
	session *tracker.SessionManager

	projects    []model.Project
	entries     []model.TimeEntry
	projectByID map[string]model.Project
	todayTotals map[string]int

	// Sync
	syncClient      *sync.Client
	autoSync        *sync.AutoSync
	syncRefreshChan chan struct{}

	// UI state
	width       int
	height      int
	pane        Pane
	mode        Mode
	projCursor  int
	entryCursor int

	// Input
	input textinput.Model

	// Filter (vim-style)
	filterText   string
	matchIndices []int // Indices of matching entries
	matchCursor  int   // Current match for n/N navigation

	// Project waiting on switch confirmation
	pendingSwitch string

	message string
}

// NewModel creates a new TUI model
func NewModel(database *db.DB) Model {
	ti := textinput.New()
	ti.Placeholder = "09:00-10:30 what you did..."
	ti.CharLimit = 256
	ti.Width = 50

	st := store.New(database)

	m := Model{
		db:              database,
		store:           st,
		session:         tracker.NewSessionManager(st, sync.LocalOwner),
		pane:            PaneSidebar,
		mode:            ModeNormal,
		input:           ti,
		syncRefreshChan: make(chan struct{}, 1),
	}

	// Initialize sync
	sClient, err := sync.NewClient()
	if err == nil && sClient.IsLoggedIn() {
		m.syncClient = sClient
		m.autoSync = sync.NewAutoSync(sClient, database)
		refresh := m.syncRefreshChan
		m.autoSync.SetOnPull(func() {
			// Wake the session manager and the UI after pulled changes land.
			st.NotifyExternalChange(sync.LocalOwner)
			select {
			case refresh <- struct{}{}:
			default:
			}
		})
		if sClient.CanAutoSync() {
			m.autoSync.TriggerSync()
		}
	}

	m.loadData()
	return m
}

func (m *Model) loadData() {
	ctx := context.Background()
	now := time.Now()

	projects, _ := m.store.ListProjects(ctx, sync.LocalOwner)
	// Pinned projects first, then by name
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].IsPinned != projects[j].IsPinned {
			return projects[i].IsPinned
		}
		return strings.ToLower(projects[i].Name) < strings.ToLower(projects[j].Name)
	})
	m.projects = projects
	if m.projCursor >= len(m.projects) {
		m.projCursor = 0
	}

	m.projectByID = make(map[string]model.Project, len(projects))
	for _, p := range projects {
		m.projectByID[p.ID] = p
	}

	entries, _ := m.store.ListEntries(ctx, sync.LocalOwner)
	tracker.SortEntries(entries)
	m.entries = entries
	if m.entryCursor >= len(m.entries) {
		m.entryCursor = 0
	}

	from, to := tracker.DayRange(now)
	today := tracker.FilterEntries(entries, m.projectByID, tracker.Filter{From: from, To: to}, now)
	m.todayTotals = tracker.GroupByProject(today, now)

	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.matchIndices = nil

	if m.filterText == "" {
		m.matchCursor = 0
		return
	}

	filter := strings.ToLower(m.filterText)
	for i, e := range m.entries {
		name := strings.ToLower(m.projectByID[e.ProjectID].Name)
		desc := strings.ToLower(e.Description)
		if strings.Contains(name, filter) || strings.Contains(desc, filter) {
			m.matchIndices = append(m.matchIndices, i)
		}
	}
	if m.matchCursor >= len(m.matchIndices) {
		m.matchCursor = 0
	}
}

func (m *Model) currentProject() *model.Project {
	if m.projCursor < len(m.projects) {
		return &m.projects[m.projCursor]
	}
	return nil
}

func (m *Model) currentEntry() *model.TimeEntry {
	if m.entryCursor < len(m.entries) {
		return &m.entries[m.entryCursor]
	}
	return nil
}

// activeProjectName resolves the running entry's project for display
func (m *Model) activeProjectName() string {
	active := m.session.ActiveEntry()
	if active == nil {
		return ""
	}
	if p, ok := m.projectByID[active.ProjectID]; ok {
		return p.Name
	}
	return "(deleted project)"
}
