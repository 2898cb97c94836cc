package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// DefaultPollInterval is how often the console viewer polls its action.
const DefaultPollInterval = 200 * time.Millisecond

const (
	defaultConsoleWidth  = 80
	defaultConsoleHeight = 15
	// chromeHeight is the number of rows around the viewport: header,
	// progress, two border rows, status and help.
	chromeHeight = 6
	minViewport  = 3
)

// ConsoleSource is what the console viewer polls and can stop.
// *action.BackgroundAction satisfies it.
type ConsoleSource interface {
	Name() string
	ConsoleData() action.ConsoleData
	Stop() error
}

// ConsoleOption configures a ConsoleModel.
type ConsoleOption func(*ConsoleModel)

// WithPollInterval sets how often the action is polled. Non-positive values
// keep the default.
func WithPollInterval(d time.Duration) ConsoleOption {
	return func(m *ConsoleModel) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithConsoleTitle sets the header shown above the console.
func WithConsoleTitle(title string) ConsoleOption {
	return func(m *ConsoleModel) { m.title = title }
}

// WithStatusChannel shows the latest status message a workflow publishes on
// ch below the console.
func WithStatusChannel(ctx context.Context, ch <-chan workflow.StatusEvent) ConsoleOption {
	return func(m *ConsoleModel) {
		m.ctx = ctx
		m.statusCh = ch
	}
}

// ConsoleModel is the Bubble Tea model that follows a running action: a
// progress bar, a scrollable console and the latest status line. It quits
// once the action has finished, or when the user detaches.
type ConsoleModel struct {
	theme    Theme
	keys     KeyMap
	source   ConsoleSource
	title    string
	interval time.Duration

	viewport viewport.Model
	follow   bool
	data     action.ConsoleData
	status   string
	width    int

	finished bool
	detached bool
	stopping bool

	ctx      context.Context
	statusCh <-chan workflow.StatusEvent
	bridge   EventBridge
}

// NewConsoleModel creates a viewer for src.
func NewConsoleModel(theme Theme, src ConsoleSource, opts ...ConsoleOption) ConsoleModel {
	m := ConsoleModel{
		theme:    theme,
		keys:     DefaultKeyMap(),
		source:   src,
		title:    src.Name(),
		interval: DefaultPollInterval,
		viewport: viewport.New(defaultConsoleWidth, defaultConsoleHeight),
		follow:   true,
		width:    defaultConsoleWidth,
		ctx:      context.Background(),
		bridge:   NewEventBridge(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init polls the action immediately and starts draining the status channel.
func (m ConsoleModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.bridge.StatusCmd(m.ctx, m.statusCh))
}

func (m ConsoleModel) poll() tea.Cmd {
	src := m.source
	return func() tea.Msg { return ConsoleMsg{Data: src.ConsoleData()} }
}

// Update handles polling, status updates, resizing and keys.
func (m ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case TickMsg:
		return m, m.poll()

	case ConsoleMsg:
		m.apply(msg.Data)
		if !msg.Data.Running {
			m.finished = true
			return m, tea.Quit
		}
		return m, TickEvery(m.interval)

	case StatusMsg:
		if msg.Event.Type == workflow.StatusUpdate && msg.Event.Message != "" {
			m.status = msg.Event.Message
		}
		return m, m.bridge.StatusCmd(m.ctx, m.statusCh)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ConsoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.detached = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Stop):
		if m.stopping {
			return m, nil
		}
		m.stopping = true
		m.status = "stopping..."
		src := m.source
		return m, func() tea.Msg {
			_ = src.Stop()
			return TickMsg{Time: time.Now()}
		}
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
	default:
		return m, nil
	}
	m.follow = m.viewport.AtBottom()
	return m, nil
}

func (m *ConsoleModel) setSize(width, height int) {
	m.width = width
	// Border and padding take two columns on each side.
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-chromeHeight, minViewport)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *ConsoleModel) apply(data action.ConsoleData) {
	m.data = data
	m.viewport.SetContent(strings.Join(data.ConsoleOutput, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// View renders the header, progress bar, console and footer.
func (m ConsoleModel) View() string {
	var sb strings.Builder

	indicator := m.theme.StatusIndicator(m.data.Running, m.data.Error != "")
	sb.WriteString(indicator + " " + m.theme.Title.Render(m.title))
	sb.WriteString("\n")

	// Progress is -1 until the action reports any.
	percent := max(m.data.Progress, 0)
	barWidth := max(m.width-8, 10)
	sb.WriteString(m.theme.ProgressBar(float64(percent)/100, barWidth))
	sb.WriteString(" ")
	sb.WriteString(m.theme.ProgressPercent.Render(fmt.Sprintf("%3d%%", percent)))
	sb.WriteString("\n")

	sb.WriteString(m.theme.ConsoleContainer.Render(m.viewport.View()))
	sb.WriteString("\n")

	switch {
	case m.data.Error != "":
		sb.WriteString(m.theme.ErrorText.Render(m.data.Error))
	case m.status != "":
		sb.WriteString(m.theme.StatusLine.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(HelpLine(m.theme, m.keys.ShortHelp()))
	return sb.String()
}

// Data returns the last snapshot of the action.
func (m ConsoleModel) Data() action.ConsoleData { return m.data }

// Finished reports whether the viewer saw the action finish.
func (m ConsoleModel) Finished() bool { return m.finished }

// Detached reports whether the user left the viewer while the action was
// still running.
func (m ConsoleModel) Detached() bool { return m.detached }

// Stopped reports whether the user asked to stop the action.
func (m ConsoleModel) Stopped() bool { return m.stopping }

// Status returns the latest status line.
func (m ConsoleModel) Status() string { return m.status }

// RunConsole shows a ConsoleModel for src until the action finishes or the
// user detaches, and returns the final model.
func RunConsole(ctx context.Context, theme Theme, src ConsoleSource, opts []ConsoleOption, progOpts ...tea.ProgramOption) (ConsoleModel, error) {
	m := NewConsoleModel(theme, src, opts...)
	progOpts = append([]tea.ProgramOption{tea.WithContext(ctx)}, progOpts...)
	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		return m, fmt.Errorf("console viewer: %w", err)
	}
	cm, ok := final.(ConsoleModel)
	if !ok {
		return m, fmt.Errorf("console viewer: unexpected model %T", final)
	}
	return cm, nil
}
