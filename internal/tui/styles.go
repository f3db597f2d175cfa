package tui

import "github.com/charmbracelet/lipgloss"

// Color palette based on TUI design
var (
	// Timer states
	TimerRunning = lipgloss.Color("#95E1A3") // Green
	TimerIdle    = lipgloss.Color("#6C757D") // Gray

	// Sync states
	SyncOK      = lipgloss.Color("#95E1A3") // Green
	SyncPending = lipgloss.Color("#FFE66D") // Yellow
	SyncError   = lipgloss.Color("#FF6B6B") // Red

	// UI colors
	Primary    = lipgloss.Color("#4ECDC4")
	Secondary  = lipgloss.Color("#6C757D")
	Background = lipgloss.Color("#1a1a2e")
	Surface    = lipgloss.Color("#16213e")
	Text       = lipgloss.Color("#FFFFFF")
	TextMuted  = lipgloss.Color("#888888")
	Border     = lipgloss.Color("#333333")
	Highlight  = lipgloss.Color("#4ECDC4")
)

// Styles
var (
	// App container
	AppStyle = lipgloss.NewStyle().
			Background(Background)

	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Sidebar
	SidebarStyle = lipgloss.NewStyle().
			Width(24).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	// Entry list
	EntryListStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Project item
	ProjectItemStyle = lipgloss.NewStyle().
				Padding(0, 1)

	ProjectItemSelectedStyle = lipgloss.NewStyle().
					Padding(0, 1).
					Background(Surface).
					Bold(true)

	// Entry item
	EntryItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	EntryItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	EntryRunningStyle = lipgloss.NewStyle().
				Foreground(TimerRunning).
				Bold(true).
				Padding(0, 1)

	// Day header inside the entry list
	DayHeaderStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Bold(true)

	// Active timer block at the top of the sidebar
	TimerStyle = lipgloss.NewStyle().
			Foreground(TimerRunning).
			Bold(true)

	TimerIdleStyle = lipgloss.NewStyle().
			Foreground(TimerIdle)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)

// projectDot renders a colored marker for a project
func projectDot(color string) string {
	if color == "" {
		return "●"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}
