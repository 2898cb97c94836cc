package workflow

import (
	"github.com/charmbracelet/log"
)

// Renderer is the opaque display builder a step renders into. Implementations
// decide the actual presentation (terminal form, HTML, test recorder).
type Renderer interface {
	AddText(text string)
	AddField(f Field)
	AddHidden(name, value string)
	AddButton(b Button)
}

// Field is a user input.
type Field struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Value       string   `json:"value,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Button submits the form with Name set to Value.
type Button struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Value    string `json:"value,omitempty"`
	Primary  bool   `json:"primary,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Notifier shows transient user-facing messages (popups, toasts).
type Notifier interface {
	Notify(level log.Level, message string)
}

// LogNotifier is a Notifier that writes messages to a logger. It is the
// default when no notifier is configured.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs message at level.
func (n LogNotifier) Notify(level log.Level, message string) {
	if n.Logger == nil {
		return
	}
	n.Logger.Log(level, message)
}
