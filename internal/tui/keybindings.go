package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings of the console viewer.
type KeyMap struct {
	// Quit leaves the viewer; the action keeps running.
	Quit key.Binding
	// Stop cancels the running action, then leaves once it has finished.
	Stop key.Binding

	// Scrolling keys
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
}

// DefaultKeyMap returns the default keybindings. Key names follow the Bubble
// Tea format ("ctrl+c", "pgup", ...).
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "detach"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+c", "x"),
			key.WithHelp("x/ctrl+c", "stop"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home", "top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end", "follow"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer of the viewer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Stop, k.Up, k.Down, k.End}
}

// HelpLine renders bindings as "KEY desc  KEY desc" with the theme's help
// styles. Disabled bindings are left out.
func HelpLine(theme Theme, bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		parts = append(parts, theme.HelpKey.Render(b.Help().Key)+" "+theme.HelpDesc.Render(b.Help().Desc))
	}
	return strings.Join(parts, "  ")
}
