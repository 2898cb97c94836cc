package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// ---------------------------------------------------------------------------
// Backend messages
// ---------------------------------------------------------------------------

// ConsoleMsg carries a fresh snapshot of the watched action.
type ConsoleMsg struct {
	Data action.ConsoleData
}

// StatusMsg wraps a live status update published by a workflow.
type StatusMsg struct {
	Event workflow.StatusEvent
}

// ---------------------------------------------------------------------------
// Internal TUI Messages
// ---------------------------------------------------------------------------

// TickMsg is sent periodically to poll the watched action.
type TickMsg struct {
	// Time is the wall-clock time at which the tick fired.
	Time time.Time
}

// TickEvery returns a tea.Cmd that sends a TickMsg after d. The Update
// handler schedules the next tick when it receives one:
//
//	case TickMsg:
//	    // poll...
//	    return m, TickEvery(interval)
func TickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
