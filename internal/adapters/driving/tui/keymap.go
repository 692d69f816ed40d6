package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Help toggles the help view.
	Help key.Binding

	// Back returns to the previous view.
	Back key.Binding

	// Submit triggers a search or confirms a selection.
	Submit key.Binding

	// Up navigates up in the result list.
	Up key.Binding

	// Down navigates down in the result list.
	Down key.Binding

	// VoteUp marks the highlighted result as relevant.
	VoteUp key.Binding

	// VoteDown marks the highlighted result as irrelevant.
	VoteDown key.Binding

	// Dismiss clears the current notice.
	Dismiss key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search/select"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		VoteUp: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "relevant"),
		),
		VoteDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "irrelevant"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Submit},
		{k.VoteUp, k.VoteDown, k.Dismiss},
		{k.Back, k.Help, k.Quit},
	}
}
