package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/tui"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// followFunc shows a running action until it finishes. It reports whether
// the action ran to its end without the user stopping or leaving it.
type followFunc func(ctx context.Context, a *action.BackgroundAction, title string) (bool, error)

// tailFollower prints the console of an action to w line by line. It is used
// when no terminal is attached.
func tailFollower(w io.Writer, interval time.Duration) followFunc {
	return func(ctx context.Context, a *action.BackgroundAction, _ string) (bool, error) {
		if err := tailConsole(ctx, a, w, interval); err != nil {
			return false, err
		}
		return true, nil
	}
}

// consoleFollower shows the interactive console viewer.
func consoleFollower(theme tui.Theme, interval time.Duration, status <-chan workflow.StatusEvent) followFunc {
	return func(ctx context.Context, a *action.BackgroundAction, title string) (bool, error) {
		opts := []tui.ConsoleOption{
			tui.WithPollInterval(interval),
			tui.WithStatusChannel(ctx, status),
		}
		if title != "" {
			opts = append(opts, tui.WithConsoleTitle(title))
		}
		m, err := tui.RunConsole(ctx, theme, a, opts)
		if err != nil {
			return false, err
		}
		return m.Finished() && !m.Stopped(), nil
	}
}

// tailConsole prints console lines of a to w as they appear, until a has
// finished. When ctx is done first the action is stopped and ctx.Err is
// returned.
func tailConsole(ctx context.Context, a *action.BackgroundAction, w io.Writer, interval time.Duration) error {
	if interval <= 0 {
		interval = tui.DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	printed := 0
	for {
		data := a.ConsoleData()
		for _, line := range newLines(data.ConsoleOutput, data.ConsoleTotal, printed) {
			fmt.Fprintln(w, line)
		}
		printed = data.ConsoleTotal
		if !data.Running {
			return nil
		}

		select {
		case <-ctx.Done():
			_ = a.Stop()
			return ctx.Err()
		case <-a.Done():
		case <-ticker.C:
		}
	}
}

// newLines returns the lines of a console snapshot appended after the first
// printed ones. total is the action's append count at snapshot time; lines
// evicted from the ring before they could be printed are lost.
func newLines(lines []string, total, printed int) []string {
	n := total - printed
	if n <= 0 {
		return nil
	}
	if n > len(lines) {
		n = len(lines)
	}
	return lines[len(lines)-n:]
}

// noticePrinter is the workflow notifier of the CLI: notices are printed to
// w in the theme's level colors. The last one is kept for error reports.
type noticePrinter struct {
	w     io.Writer
	theme tui.Theme
	last  string
}

// Notify implements workflow.Notifier.
func (n *noticePrinter) Notify(level log.Level, message string) {
	prefix := strings.ToUpper(level.String())
	fmt.Fprintln(n.w, n.theme.NoticeStyle(level).Render(prefix+": "+message))
	n.last = message
}
