// Package action runs long-lived units of work in the background and keeps a
// process-wide table of them.
//
// A BackgroundAction owns a bounded console stream and a bounded structured
// log stream, may supervise one child process, and reports progress and a
// terminal error. Every action is registered in exactly one Registry from
// construction until it is deleted.
package action

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/ringlog"
)

// DefaultName is the display name of an action constructed without WithName.
const DefaultName = "background-action"

// DefaultGraceDelay is how long a foreground action waits after its work
// function returns before deleting itself, so process readers can drain.
const DefaultGraceDelay = 500 * time.Millisecond

// consoleTimeLayout is the timestamp format used in formatted console lines.
const consoleTimeLayout = "2006-01-02 15:04:05"

// ErrAlreadyStarted is returned by Start when the action was started before.
var ErrAlreadyStarted = errors.New("action already started")

// Compile-time check that BackgroundAction implements Action.
var _ Action = (*BackgroundAction)(nil)

// Action is the capability set the Registry relies on. Optional hooks such as
// RemoteClose are part of the interface; implementations without a remote
// side return nil.
type Action interface {
	// ID returns the opaque instance identity used for registry uniqueness
	// and for correlating the action across requests.
	ID() string

	// Name returns the current display name.
	Name() string

	IsRunning() bool

	// Progress returns -1 for indeterminate or a percentage in 0..100.
	Progress() int

	// Err returns the terminal error message, or "" when none was recorded.
	Err() string

	// HasProcess reports whether a child process was ever spawned.
	HasProcess() bool

	// ProcessClose force-kills the supervised child process, if any.
	ProcessClose() error

	// RemoteClose tears down any remote session the action holds open.
	RemoteClose() error
}

// WorkFunc is the user-supplied body of a BackgroundAction. ctx is cancelled
// when the action is stopped or deleted; work functions that honour it stop
// cooperatively, all others are only interrupted through their child process.
type WorkFunc func(ctx context.Context, a *BackgroundAction) error

// LogEntry is a single structured log record, shown separately from the
// console stream.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     log.Level `json:"level"`
	Message   string    `json:"message"`
}

// ConsoleData is a read-only composite snapshot of an action for display.
type ConsoleData struct {
	ConsoleOutput []string   `json:"console_output"`
	// ConsoleTotal counts every console line ever appended, including the
	// ones evicted from the ring or dropped by ClearConsole.
	ConsoleTotal  int        `json:"console_total"`
	Logs          []LogEntry `json:"logs"`
	ProcessOutput []string   `json:"process_output"`
	Running       bool       `json:"running"`
	Progress      int        `json:"progress"`
	Error         string     `json:"error,omitempty"`
}

// Option configures a BackgroundAction.
type Option func(*BackgroundAction)

// WithName sets the display name.
func WithName(name string) Option {
	return func(a *BackgroundAction) { a.name = name }
}

// WithBackground keeps the action registered after its work completes so it
// stays visible in listings. Foreground actions (the default) delete
// themselves after the grace delay.
func WithBackground(background bool) Option {
	return func(a *BackgroundAction) { a.background = background }
}

// WithLogger attaches the structured logger that console lines are mirrored
// to. When not set the action logs through logging.New("action").
func WithLogger(logger *log.Logger) Option {
	return func(a *BackgroundAction) { a.logger = logger }
}

// WithGraceDelay overrides DefaultGraceDelay.
func WithGraceDelay(d time.Duration) Option {
	return func(a *BackgroundAction) { a.graceDelay = d }
}

// WithTriggers installs scripted responses for the supervised process.
func WithTriggers(triggers ...Trigger) Option {
	return func(a *BackgroundAction) { a.triggers = append(a.triggers, triggers...) }
}

// WithConsoleCapacity overrides ringlog.ConsoleCapacity for this action. The
// same capacity applies to the raw process output buffer.
func WithConsoleCapacity(n int) Option {
	return func(a *BackgroundAction) { a.consoleCap = n }
}

// WithLogCapacity overrides ringlog.LogCapacity for this action.
func WithLogCapacity(n int) Option {
	return func(a *BackgroundAction) { a.logCap = n }
}

// BackgroundAction is a unit of work executed on its own goroutine. All
// mutable state is guarded by mu; console and log appends are therefore
// totally ordered within one action.
type BackgroundAction struct {
	id         string
	registry   *Registry
	work       WorkFunc
	logger     *log.Logger
	background bool
	graceDelay time.Duration
	triggers   []Trigger
	consoleCap int
	logCap     int
	done       chan struct{}

	mu         sync.Mutex
	name       string
	started    bool
	running    bool
	progress   int
	errMsg     string
	cancel     context.CancelFunc
	ctx        context.Context
	console    *ringlog.Log[string]
	appended   int
	logs       *ringlog.Log[LogEntry]
	procOutput *ringlog.Log[string]
	proc       *process
}

// New creates a BackgroundAction and registers it with reg. The returned
// error wraps ErrLockTimeout when the registry could not be locked in time;
// in that case the action is not registered and must not be started.
func New(reg *Registry, work WorkFunc, opts ...Option) (*BackgroundAction, error) {
	if reg == nil {
		return nil, errors.New("action: nil registry")
	}
	if work == nil {
		return nil, errors.New("action: nil work function")
	}

	a := &BackgroundAction{
		id:         uuid.NewString(),
		registry:   reg,
		work:       work,
		name:       DefaultName,
		graceDelay: DefaultGraceDelay,
		progress:   -1,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.New("action")
	}
	if a.consoleCap <= 0 {
		a.consoleCap = ringlog.ConsoleCapacity
	}
	if a.logCap <= 0 {
		a.logCap = ringlog.LogCapacity
	}
	a.console = ringlog.New[string](a.consoleCap)
	a.logs = ringlog.New[LogEntry](a.logCap)
	a.procOutput = ringlog.New[string](a.consoleCap)
	a.ctx, a.cancel = context.WithCancel(context.Background())

	if err := reg.Add(a); err != nil {
		a.cancel()
		return nil, fmt.Errorf("registering action %q: %w", a.name, err)
	}
	return a, nil
}

// Start runs the work function on a new goroutine and returns immediately.
// The action reports IsRunning from the moment Start returns, so callers that
// poll right after starting never observe a not-yet-scheduled goroutine as a
// finished action.
func (a *BackgroundAction) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("start %q: %w", a.name, ErrAlreadyStarted)
	}
	a.started = true
	a.running = true
	prevCancel := a.cancel
	a.ctx, a.cancel = context.WithCancel(ctx)
	runCtx := a.ctx
	a.mu.Unlock()

	prevCancel()
	go a.threadProcess(runCtx)
	return nil
}

// threadProcess is the body of the action goroutine.
func (a *BackgroundAction) threadProcess(ctx context.Context) {
	a.logger.Debug("action started", "action", a.Name(), "id", a.id)

	if err := a.safeWork(ctx); err != nil {
		a.recordFailure(err)
	}

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	close(a.done)

	a.logger.Debug("action finished", "action", a.Name(), "id", a.id, "error", a.Err())

	if a.background {
		return
	}
	time.Sleep(a.graceDelay)
	if err := a.Delete(); err != nil {
		a.logger.Error("deleting finished action", "action", a.Name(), "error", err)
	}
}

// safeWork calls the work function inside a recover boundary so that a
// panicking work function becomes a terminal error instead of a crash.
func (a *BackgroundAction) safeWork(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("action panicked", "action", a.Name(), "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.work(ctx, a)
}

func (a *BackgroundAction) recordFailure(err error) {
	msg := err.Error()
	a.mu.Lock()
	a.errMsg = msg
	a.mu.Unlock()
	a.LogWrite(msg, log.ErrorLevel)
	a.ConsoleWrite(msg, log.ErrorLevel)
}

// ConsoleWrite appends a formatted "[timestamp][LEVEL] message" line to the
// console stream and mirrors the message to the structured logger.
func (a *BackgroundAction) ConsoleWrite(message string, level log.Level) {
	line := fmt.Sprintf("[%s][%s] %s", time.Now().Format(consoleTimeLayout), logging.Tag(level), message)
	a.mu.Lock()
	a.console.Append(line)
	a.appended++
	name := a.name
	a.mu.Unlock()
	a.logger.Log(level, message, "action", name)
}

// ConsoleWriteRaw appends message to the console stream verbatim.
func (a *BackgroundAction) ConsoleWriteRaw(message string) {
	a.mu.Lock()
	a.console.Append(message)
	a.appended++
	a.mu.Unlock()
}

// LogWrite appends a structured entry to the log stream. It does not touch
// the console stream.
func (a *BackgroundAction) LogWrite(message string, level log.Level) {
	entry := LogEntry{Timestamp: time.Now(), Level: level, Message: message}
	a.mu.Lock()
	a.logs.Append(entry)
	a.mu.Unlock()
}

// ClearConsole drops all captured console lines.
func (a *BackgroundAction) ClearConsole() {
	a.mu.Lock()
	a.console.Clear()
	a.mu.Unlock()
}

// ConsoleData returns a snapshot of the console, logs, raw process output
// and status. It only holds the action mutex for the copy.
func (a *BackgroundAction) ConsoleData() ConsoleData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ConsoleData{
		ConsoleOutput: a.console.Snapshot(0),
		ConsoleTotal:  a.appended,
		Logs:          a.logs.Snapshot(0),
		ProcessOutput: a.procOutput.Snapshot(0),
		Running:       a.running,
		Progress:      a.progress,
		Error:         a.errMsg,
	}
}

// ConsoleTail returns at most n of the most recent console lines.
func (a *BackgroundAction) ConsoleTail(n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.console.Snapshot(n)
}

// Delete stops the action and removes it from its registry, which also
// kills any supervised process. Calling Delete more than once is harmless.
func (a *BackgroundAction) Delete() error {
	a.mu.Lock()
	a.running = false
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	if err := a.registry.Remove(a); err != nil {
		return fmt.Errorf("delete %q: %w", a.Name(), err)
	}
	return nil
}

// Stop cancels the work function's context and kills the supervised process
// but leaves the action registered so its output stays inspectable.
func (a *BackgroundAction) Stop() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	return a.ProcessClose()
}

// RemoteClose is a no-op; BackgroundAction holds no remote sessions.
func (a *BackgroundAction) RemoteClose() error { return nil }

// ID returns the action's instance identity.
func (a *BackgroundAction) ID() string { return a.id }

// Name returns the display name.
func (a *BackgroundAction) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// SetName changes the display name.
func (a *BackgroundAction) SetName(name string) {
	a.mu.Lock()
	a.name = name
	a.mu.Unlock()
}

// IsRunning reports whether the work function is still executing.
func (a *BackgroundAction) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Progress returns -1 (indeterminate) or a percentage.
func (a *BackgroundAction) Progress() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// SetProgress records progress, clamped to -1..100.
func (a *BackgroundAction) SetProgress(p int) {
	if p < -1 {
		p = -1
	}
	if p > 100 {
		p = 100
	}
	a.mu.Lock()
	a.progress = p
	a.mu.Unlock()
}

// Err returns the terminal error message, or "" if the action has not failed.
func (a *BackgroundAction) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errMsg
}

// Background reports whether the action stays registered after completion.
func (a *BackgroundAction) Background() bool { return a.background }

// Done returns a channel closed once the work function has returned and the
// action is no longer running.
func (a *BackgroundAction) Done() <-chan struct{} { return a.done }

// Context returns the context the work function runs under.
func (a *BackgroundAction) Context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}
