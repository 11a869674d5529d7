package tui

import "github.com/charmbracelet/bubbles/key"

type dashboardKeys struct {
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Toggle   key.Binding
	Collapse key.Binding
	Record   key.Binding
	Manual   key.Binding
	Unread   key.Binding
	Quit     key.Binding
}

func (k dashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Collapse, k.Record, k.Manual, k.Unread, k.Quit}
}

func (k dashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var dashboardKeyMap = dashboardKeys{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Expand: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "expand"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space/enter", "open/close"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "close"),
	),
	Record: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "record"),
	),
	Manual: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "set history"),
	),
	Unread: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "unread only"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type formKeys struct {
	Next     key.Binding
	Prev     key.Binding
	BookUp   key.Binding
	BookDown key.Binding
	Submit   key.Binding
	Cancel   key.Binding
}

func (k formKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.BookUp, k.BookDown, k.Submit, k.Cancel}
}

func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var formKeyMap = formKeys{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
	BookUp: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous book"),
	),
	BookDown: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next book"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
}
