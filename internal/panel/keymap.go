package panel

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Up       key.Binding
	Down     key.Binding
	Activate key.Binding
	Close    key.Binding
	Overflow key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("right", "l", "tab"),
		key.WithHelp("→/tab", "next org"),
	),
	Prev: key.NewBinding(
		key.WithKeys("left", "h", "shift+tab"),
		key.WithHelp("←/shift+tab", "previous org"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "move down"),
	),
	Activate: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "switch"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	Overflow: key.NewBinding(
		key.WithKeys("."),
		key.WithHelp(".", "more orgs"),
	),
}
