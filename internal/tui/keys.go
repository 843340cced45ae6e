package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Tab  key.Binding
	Quit key.Binding
	Send key.Binding
	Up   key.Binding
	Down key.Binding
	Prev key.Binding
	Next key.Binding
}

var DefaultKeyMap = KeyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panels"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Up: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdown", "scroll down"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous message"),
	),
	Next: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next message"),
	),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Tab, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Tab, k.Quit},
		{k.Up, k.Down, k.Prev, k.Next},
	}
}
