package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/irontrack/internal/tracker"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	entryList := m.renderEntryList()
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, entryList)

	if m.mode == ModeAddEntry || m.mode == ModeAddProject || m.mode == ModeDescribe {
		modal := m.renderModal()
		mainContent = lipgloss.Place(
			m.width, m.height-2,
			lipgloss.Center, lipgloss.Center,
			modal,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	if m.mode == ModeConfirmSwitch {
		modal := m.renderConfirmSwitch()
		mainContent = lipgloss.Place(
			m.width, m.height-2,
			lipgloss.Center, lipgloss.Center,
			modal,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	if m.mode == ModeHelp {
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) renderSidebar() string {
	sidebarWidth := 26
	var s string

	// Header with clock
	now := time.Now()
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("IronTrack") + "\n"
	s += HelpStyle.Render(now.Format("15:04:05")) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render("────────────────────") + "\n"

	// Active timer block
	if active := m.session.ActiveEntry(); active != nil {
		s += TimerStyle.Render("▶ "+truncate(m.activeProjectName(), 16)) + "\n"
		s += TimerStyle.Render("  "+m.session.Elapsed()) + "\n"
		if active.Description != "" {
			s += HelpStyle.Render("  "+truncate(active.Description, 18)) + "\n"
		}
	} else {
		s += TimerIdleStyle.Render("no timer running") + "\n"
	}
	s += lipgloss.NewStyle().Foreground(Border).Render("────────────────────") + "\n\n"

	for i, p := range m.projects {
		cursor := "  "
		style := ProjectItemStyle
		if i == m.projCursor {
			cursor = "❯ "
			if m.pane == PaneSidebar {
				style = ProjectItemSelectedStyle
			}
		}

		pin := " "
		if p.IsPinned {
			pin = "📌"
		}

		today := tracker.FormatDuration(m.todayTotals[p.ID])
		line := fmt.Sprintf("%s%s %s%-10s %6s",
			cursor, projectDot(p.Color), pin, truncate(p.Name, 10), today)
		s += style.Render(line) + "\n"
	}

	if len(m.projects) == 0 {
		s += HelpStyle.Render("  no projects yet") + "\n"
	}

	s += "\n" + lipgloss.NewStyle().Foreground(Border).Render("────────────────────") + "\n"
	s += HelpStyle.Render("p new project")

	return SidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(s)
}

func (m Model) renderEntryList() string {
	width := m.width - 28
	var s string
	now := time.Now()

	header := "Time Entries"
	if m.filterText != "" {
		header = fmt.Sprintf("Time Entries  /%s", m.filterText)
	}
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(header) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 1))) + "\n"

	if len(m.entries) == 0 {
		s += "\n" + HelpStyle.Render("  No entries yet. Press 's' on a project to start tracking.")
	}

	lastDay := ""
	for i, e := range m.entries {
		day := tracker.DayKey(e.StartTime.Local())
		if day != lastDay {
			lastDay = day
			s += "\n" + DayHeaderStyle.Render(dayLabel(day, now)) + "\n"
		}

		cursor := "  "
		style := EntryItemStyle
		if i == m.entryCursor && m.pane == PaneEntries {
			cursor = "❯ "
			style = EntryItemSelectedStyle
		}

		// Highlight matching entries
		for _, idx := range m.matchIndices {
			if idx == i && i != m.entryCursor {
				style = lipgloss.NewStyle().Foreground(Highlight)
				break
			}
		}
		if e.Running() {
			style = EntryRunningStyle
		}

		name := m.projectByID[e.ProjectID].Name
		if name == "" {
			name = "(deleted project)"
		}

		span := tracker.FormatSpan(e.Duration(now))
		if e.Running() {
			span = "▶ " + span
		}

		desc := truncate(e.Description, max(width-50, 8))
		line := fmt.Sprintf("%s%s  %s %-16s %7s  %s",
			cursor, formatSpanClock(e.StartTime, e.EndTime),
			projectDot(m.projectByID[e.ProjectID].Color),
			truncate(name, 16), span, desc)
		s += style.Render(line) + "\n"
	}

	return EntryListStyle.Width(width).Height(m.height - 2).Render(s)
}

func (m Model) renderStatusBar() string {
	// When in filter mode, show inline search input (like vim)
	if m.mode == ModeFilter {
		matches := ""
		if len(m.matchIndices) > 0 {
			matches = fmt.Sprintf(" [%d/%d]", m.matchCursor+1, len(m.matchIndices))
		} else if m.filterText != "" {
			matches = " [no match]"
		}
		return StatusBarStyle.Width(m.width).Render("/" + m.input.View() + matches)
	}

	help := "s:start/stop  a:add  e:describe  d:del  /:search  ?:help  q:quit"
	if m.filterText != "" {
		if len(m.matchIndices) > 0 {
			help = fmt.Sprintf("/%s  [%d/%d matches]  n:next  N:prev  Esc:clear",
				m.filterText, m.matchCursor+1, len(m.matchIndices))
		} else {
			help = fmt.Sprintf("/%s  [no matches]  Esc:clear", m.filterText)
		}
	} else if m.message != "" {
		help = m.message
	}

	// Append sync status (right aligned)
	syncMsg := ""
	if m.autoSync != nil && m.autoSync.IsPending() {
		syncMsg = "Syncing..."
	}

	if syncMsg != "" {
		avail := m.width - len(help) - len(syncMsg) - 2
		if avail > 0 {
			help += strings.Repeat(" ", avail) + syncMsg
		} else {
			help += " " + syncMsg
		}
	}

	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	title := "Add Entry"
	hint := "Enter:save  Esc:cancel"
	switch m.mode {
	case ModeAddProject:
		title = "New Project"
	case ModeDescribe:
		title = "Describe Entry"
	case ModeAddEntry:
		if proj := m.currentProject(); proj != nil {
			title = fmt.Sprintf("Add Entry to: %s", proj.Name)
		}
		hint = "09:00-10:30 notes  or  2026-08-30 09:00-10:30 notes\nEnter:save  Esc:cancel"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render(hint)

	return ModalStyle.Render(content)
}

func (m Model) renderConfirmSwitch() string {
	from := m.activeProjectName()
	to := ""
	if p, ok := m.projectByID[m.pendingSwitch]; ok {
		to = p.Name
	}

	content := lipgloss.NewStyle().Bold(true).Render("Switch timer?") + "\n\n"
	content += fmt.Sprintf("Stop %s and start %s\n\n", from, to)
	content += HelpStyle.Render("y/Enter:switch  any other key:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	help := `
╭──── Keyboard Shortcuts ────╮
│                            │
│  Navigation                │
│  ──────────                │
│  j/↓     Move down         │
│  k/↑     Move up           │
│  h/l     Switch pane       │
│  Tab     Switch pane       │
│  G       Go to bottom      │
│                            │
│  Tracking                  │
│  ────────                  │
│  s/Enter Start or switch   │
│  x       Stop timer        │
│  a       Add manual entry  │
│  e       Edit description  │
│  d       Delete            │
│  p       New project       │
│  P       Pin project       │
│                            │
│  Other                     │
│  ─────                     │
│  /       Search entries    │
│  r       Refresh and sync  │
│  ?       Toggle help       │
│  q       Quit              │
│                            │
╰────────────────────────────╯

      Press any key to close
`
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
}
