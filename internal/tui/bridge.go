package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// EventBridge turns the workflow status channel into Bubble Tea messages.
// Each command reads a single value; the Update handler re-issues the
// command after every message to keep draining the channel:
//
//	case StatusMsg:
//	    // handle...
//	    return m, bridge.StatusCmd(ctx, ch)
type EventBridge struct{}

// NewEventBridge creates a new EventBridge.
func NewEventBridge() EventBridge {
	return EventBridge{}
}

// StatusCmd reads one StatusEvent from ch. It returns nil once ch is closed
// or ctx is done.
func (b EventBridge) StatusCmd(ctx context.Context, ch <-chan workflow.StatusEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return StatusMsg{Event: ev}
		}
	}
}
