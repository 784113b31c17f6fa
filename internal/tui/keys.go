package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	CycleStatus key.Binding
	Reload      key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev list")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next list")),
		MoveUp:      key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move task up")),
		MoveDown:    key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move task down")),
		MoveLeft:    key.NewBinding(key.WithKeys("[", "<"), key.WithHelp("[", "move to prev list")),
		MoveRight:   key.NewBinding(key.WithKeys("]", ">"), key.WithHelp("]", "move to next list")),
		CycleStatus: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss toast")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.MoveLeft, k.MoveRight, k.CycleStatus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.MoveUp, k.MoveDown, k.MoveLeft, k.MoveRight},
		{k.CycleStatus, k.Reload, k.Dismiss, k.Help, k.Quit},
	}
}
