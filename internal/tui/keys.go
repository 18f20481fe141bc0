package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings for the list view and the task form.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	New     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Status  key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Dismiss key.Binding
	Logout  key.Binding
	Quit    key.Binding

	// ForceQuit works in every view, including while typing.
	ForceQuit key.Binding

	// Form.
	NextField  key.Binding
	PrevField  key.Binding
	OptionPrev key.Binding
	OptionNext key.Binding
	Submit     key.Binding
	Cancel     key.Binding
}

// DefaultKeyMap uses vim-style j/k alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new task"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "enter"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "delete"),
	),
	Status: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "next status"),
	),
	Filter: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "filter by user"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("x", "esc"),
		key.WithHelp("x", "dismiss error"),
	),
	Logout: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "log out"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "previous field"),
	),
	OptionPrev: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous status"),
	),
	OptionNext: key.NewBinding(
		key.WithKeys("right", " "),
		key.WithHelp("→", "next status"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
}

func (k KeyMap) listHelp() []key.Binding {
	return []key.Binding{k.New, k.Edit, k.Delete, k.Status, k.Filter, k.Refresh, k.Logout, k.Quit}
}

func (k KeyMap) formHelp() []key.Binding {
	return []key.Binding{k.NextField, k.OptionNext, k.Submit, k.Cancel}
}

func (k KeyMap) loginHelp() []key.Binding {
	return []key.Binding{
		k.NextField,
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "sign in")),
		k.ForceQuit,
	}
}
