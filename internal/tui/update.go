package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/irontrack/internal/model"
	"github.com/existflow/irontrack/internal/sync"
	"github.com/existflow/irontrack/internal/tracker"
)

// tickMsg is sent every second for clock and elapsed updates
type tickMsg time.Time

// syncRefreshMsg is sent when a background sync pulled remote changes
type syncRefreshMsg struct{}

// Init initializes the model with a tick command
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.waitForSyncRefresh())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) waitForSyncRefresh() tea.Cmd {
	ch := m.syncRefreshChan
	return func() tea.Msg {
		<-ch
		return syncRefreshMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// The sidebar clock and the running timer redraw on every tick;
		// the data itself only reloads when something changed.
		return m, tickCmd()

	case syncRefreshMsg:
		m.loadData()
		m.message = "Pulled remote changes"
		return m, m.waitForSyncRefresh()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddEntry, ModeAddProject, ModeDescribe:
			return m.updateInput(msg)
		case ModeFilter:
			return m.updateFilter(msg)
		case ModeConfirmSwitch:
			return m.updateConfirmSwitch(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, m.quit()

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneSidebar {
			m.pane = PaneEntries
		} else {
			m.pane = PaneSidebar
		}

	case key.Matches(msg, keys.Left):
		m.pane = PaneSidebar

	case key.Matches(msg, keys.Right):
		m.pane = PaneEntries

	case key.Matches(msg, keys.Up):
		if m.pane == PaneSidebar {
			if m.projCursor > 0 {
				m.projCursor--
			}
		} else if m.entryCursor > 0 {
			m.entryCursor--
		}

	case key.Matches(msg, keys.Down):
		if m.pane == PaneSidebar {
			if m.projCursor < len(m.projects)-1 {
				m.projCursor++
			}
		} else if m.entryCursor < len(m.entries)-1 {
			m.entryCursor++
		}

	// Vim: G = go to bottom
	case msg.String() == "G":
		if m.pane == PaneSidebar {
			if len(m.projects) > 0 {
				m.projCursor = len(m.projects) - 1
			}
		} else if len(m.entries) > 0 {
			m.entryCursor = len(m.entries) - 1
		}

	case key.Matches(msg, keys.Start), key.Matches(msg, keys.Enter):
		return m.startOrSwitch()

	case key.Matches(msg, keys.Stop):
		entry, err := m.session.StopTracking(context.Background())
		if err != nil {
			if errors.Is(err, tracker.ErrNoActiveSession) {
				m.message = "No timer running"
			} else {
				m.message = fmt.Sprintf("Stop failed: %v", err)
			}
			return m, nil
		}
		m.message = fmt.Sprintf("Stopped after %s",
			tracker.FormatSpan(entry.Duration(*entry.EndTime)))
		m.afterWrite()

	case key.Matches(msg, keys.Add):
		if proj := m.currentProject(); proj != nil {
			m.mode = ModeAddEntry
			m.input.SetValue("")
			m.input.Placeholder = "09:00-10:30 what you did..."
			m.input.Focus()
			return m, textinput.Blink
		}
		m.message = "Create a project first (press 'p')"

	case key.Matches(msg, keys.Project):
		m.mode = ModeAddProject
		m.input.SetValue("")
		m.input.Placeholder = "Project name..."
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, keys.Pin):
		if m.pane == PaneSidebar {
			if proj := m.currentProject(); proj != nil {
				err := m.store.SetProjectPinned(context.Background(), proj.ID, !proj.IsPinned)
				if err != nil {
					m.message = fmt.Sprintf("Pin failed: %v", err)
				} else if proj.IsPinned {
					m.message = fmt.Sprintf("Unpinned %s", proj.Name)
				} else {
					m.message = fmt.Sprintf("Pinned %s", proj.Name)
				}
				m.afterWrite()
			}
		}

	case key.Matches(msg, keys.Describe):
		target := m.describeTarget()
		if target == nil {
			m.message = "Nothing to describe"
			return m, nil
		}
		m.mode = ModeDescribe
		m.input.SetValue(target.Description)
		m.input.Placeholder = "Description..."
		m.input.Focus()
		m.input.CursorEnd()
		return m, textinput.Blink

	case key.Matches(msg, keys.Delete):
		return m.deleteSelection()

	// Filter/search
	case msg.String() == "/":
		m.mode = ModeFilter
		m.pane = PaneEntries
		m.input.SetValue(m.filterText)
		m.input.Placeholder = "/"
		m.input.Focus()
		return m, textinput.Blink

	case msg.String() == "n":
		if len(m.matchIndices) > 0 {
			m.matchCursor = (m.matchCursor + 1) % len(m.matchIndices)
			m.entryCursor = m.matchIndices[m.matchCursor]
			m.message = fmt.Sprintf("[%d/%d] matches", m.matchCursor+1, len(m.matchIndices))
		}

	case msg.String() == "N":
		if len(m.matchIndices) > 0 {
			m.matchCursor--
			if m.matchCursor < 0 {
				m.matchCursor = len(m.matchIndices) - 1
			}
			m.entryCursor = m.matchIndices[m.matchCursor]
			m.message = fmt.Sprintf("[%d/%d] matches", m.matchCursor+1, len(m.matchIndices))
		}

	case key.Matches(msg, keys.Refresh):
		m.loadData()
		if m.autoSync != nil {
			m.autoSync.TriggerSync()
			m.message = "Refreshed, sync queued"
		} else {
			m.message = "Refreshed"
		}

	case key.Matches(msg, keys.Escape):
		if m.filterText != "" {
			m.filterText = ""
			m.matchIndices = nil
			m.message = "Filter cleared"
		}

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Logout):
		if m.syncClient != nil {
			if err := m.syncClient.Logout(); err != nil {
				m.message = fmt.Sprintf("Logout error: %v", err)
			} else {
				if m.autoSync != nil {
					m.autoSync.Stop()
				}
				m.syncClient = nil
				m.autoSync = nil
				m.message = "Logged out"
			}
		} else {
			m.message = "Not logged in"
		}
	}

	return m, nil
}

// startOrSwitch starts the selected project, stops it if it is already
// running, or asks for confirmation when another project's timer is active.
func (m Model) startOrSwitch() (tea.Model, tea.Cmd) {
	proj := m.currentProject()
	if proj == nil {
		m.message = "No project selected"
		return m, nil
	}

	active := m.session.ActiveEntry()
	switch {
	case active == nil:
		_, err := m.session.StartTracking(context.Background(), proj.ID)
		if err != nil {
			m.message = fmt.Sprintf("Start failed: %v", err)
			return m, nil
		}
		m.message = fmt.Sprintf("▶ Tracking %s", proj.Name)
		m.afterWrite()

	case active.ProjectID == proj.ID:
		entry, err := m.session.StopTracking(context.Background())
		if err != nil {
			m.message = fmt.Sprintf("Stop failed: %v", err)
			return m, nil
		}
		m.message = fmt.Sprintf("Stopped %s after %s",
			proj.Name, tracker.FormatSpan(entry.Duration(*entry.EndTime)))
		m.afterWrite()

	default:
		m.pendingSwitch = proj.ID
		m.mode = ModeConfirmSwitch
	}

	return m, nil
}

func (m Model) updateConfirmSwitch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		projID := m.pendingSwitch
		m.pendingSwitch = ""
		m.mode = ModeNormal
		_, err := m.session.SwitchTracking(context.Background(), projID)
		if err != nil {
			m.message = fmt.Sprintf("Switch failed: %v", err)
			return m, nil
		}
		if p, ok := m.projectByID[projID]; ok {
			m.message = fmt.Sprintf("▶ Switched to %s", p.Name)
		}
		m.afterWrite()
	default:
		m.pendingSwitch = ""
		m.mode = ModeNormal
	}
	return m, nil
}

func (m Model) deleteSelection() (tea.Model, tea.Cmd) {
	if m.pane == PaneEntries {
		entry := m.currentEntry()
		if entry == nil {
			return m, nil
		}
		if err := m.store.DeleteEntry(context.Background(), entry.ID); err != nil {
			m.message = fmt.Sprintf("Delete failed: %v", err)
			return m, nil
		}
		m.message = "Entry deleted"
		m.afterWrite()
		if m.entryCursor >= len(m.entries) && m.entryCursor > 0 {
			m.entryCursor--
		}
		return m, nil
	}

	proj := m.currentProject()
	if proj == nil {
		return m, nil
	}
	if err := m.store.DeleteProject(context.Background(), proj.ID); err != nil {
		m.message = fmt.Sprintf("Delete failed: %v", err)
		return m, nil
	}
	m.message = fmt.Sprintf("Deleted %s (entries kept)", proj.Name)
	m.afterWrite()
	if m.projCursor >= len(m.projects) && m.projCursor > 0 {
		m.projCursor--
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := m.input.Value()
		if value == "" {
			m.mode = ModeNormal
			return m, nil
		}

		switch m.mode {
		case ModeAddEntry:
			m.submitAddEntry(value)
		case ModeAddProject:
			_, err := m.store.CreateProject(context.Background(), value, "", sync.LocalOwner)
			if err != nil {
				m.message = fmt.Sprintf("Error creating project: %v", err)
			} else {
				m.message = fmt.Sprintf("Created project: %s", value)
				m.afterWrite()
			}
		case ModeDescribe:
			m.submitDescribe(value)
		}

		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitAddEntry(value string) {
	proj := m.currentProject()
	if proj == nil {
		m.message = "No project selected"
		return
	}

	now := time.Now()
	start, end, desc, err := parseEntrySpan(value, now)
	if err != nil {
		m.message = err.Error()
		return
	}

	v := tracker.Validator{}
	entry, verrs := v.Validate(sync.LocalOwner, proj.ID, start, end, desc, m.entries)
	if len(verrs) > 0 {
		m.message = verrs[0].Message
		return
	}

	if _, err := m.store.CreateEntry(context.Background(), entry); err != nil {
		m.message = fmt.Sprintf("Error adding entry: %v", err)
		return
	}
	m.message = fmt.Sprintf("Added %s to %s", tracker.FormatSpan(end.Sub(start)), proj.Name)
	m.afterWrite()
}

func (m *Model) submitDescribe(value string) {
	target := m.describeTarget()
	if target == nil {
		return
	}

	if target.Running() {
		if err := m.session.UpdateActiveDescription(context.Background(), value); err != nil {
			m.message = fmt.Sprintf("Error updating description: %v", err)
			return
		}
	} else {
		desc := value
		_, err := m.store.UpdateEntry(context.Background(), target.ID,
			model.EntryPatch{Description: &desc})
		if err != nil {
			m.message = fmt.Sprintf("Error updating description: %v", err)
			return
		}
	}
	m.message = "Description updated"
	m.afterWrite()
}

// describeTarget picks the entry a describe applies to: the selected entry
// when the entry pane is focused, the running entry otherwise.
func (m *Model) describeTarget() *model.TimeEntry {
	if m.pane == PaneEntries {
		return m.currentEntry()
	}
	return m.session.ActiveEntry()
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.filterText = ""
		m.matchIndices = nil
		return m, nil

	case key.Matches(msg, keys.Up):
		if len(m.matchIndices) > 0 && m.matchCursor > 0 {
			m.matchCursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if len(m.matchIndices) > 0 && m.matchCursor < len(m.matchIndices)-1 {
			m.matchCursor++
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		if len(m.matchIndices) > 0 && m.matchCursor < len(m.matchIndices) {
			m.entryCursor = m.matchIndices[m.matchCursor]
		}
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filterText = m.input.Value()
	m.applyFilter()
	return m, cmd
}

// afterWrite reloads state and queues a background push
func (m *Model) afterWrite() {
	m.loadData()
	if m.autoSync != nil {
		m.autoSync.TriggerSync()
	}
}

// quit flushes any pending sync before shutting down
func (m Model) quit() tea.Cmd {
	if m.autoSync != nil {
		_ = m.autoSync.SyncNowIfPending()
		m.autoSync.Stop()
	}
	m.session.Close()
	return tea.Quit
}
