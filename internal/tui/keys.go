package tui

import "github.com/charmbracelet/bubbles/key"

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Tab      key.Binding
	Enter    key.Binding
	Start    key.Binding
	Stop     key.Binding
	Add      key.Binding
	Describe key.Binding
	Delete   key.Binding
	Project  key.Binding
	Pin      key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
	Escape   key.Binding
	Logout   key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left pane")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right pane")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start/switch")),
	Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/switch")),
	Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop timer")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add entry")),
	Describe: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "describe")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Project:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "new project")),
	Pin:      key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pin project")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh/sync")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
}
