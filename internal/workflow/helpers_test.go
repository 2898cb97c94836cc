package workflow

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

// recorder is a Renderer that keeps everything it is given.
type recorder struct {
	texts   []string
	fields  []Field
	hidden  map[string]string
	buttons []Button
}

func (r *recorder) AddText(text string) { r.texts = append(r.texts, text) }
func (r *recorder) AddField(f Field) { r.fields = append(r.fields, f) }
func (r *recorder) AddButton(b Button) { r.buttons = append(r.buttons, b) }

func (r *recorder) AddHidden(name, value string) {
	if r.hidden == nil {
		r.hidden = make(map[string]string)
	}
	r.hidden[name] = value
}

func (r *recorder) button(name string) (Button, bool) {
	for _, b := range r.buttons {
		if b.Name == name {
			return b, true
		}
	}
	return Button{}, false
}

type notice struct {
	level   log.Level
	message string
}

// notifyRecorder is a Notifier that records every message.
type notifyRecorder struct {
	mu      sync.Mutex
	notices []notice
}

func (n *notifyRecorder) Notify(level log.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{level: level, message: message})
}

func (n *notifyRecorder) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notice, len(n.notices))
	copy(out, n.notices)
	return out
}

func newTestRegistry() *action.Registry {
	return action.NewRegistry(action.WithRegistryLogger(logging.Discard()))
}

// session drives a workflow the way a stateless request handler does: every
// submission builds a fresh Workflow and the state travels only through the
// hidden fields of the last rendered page.
type session struct {
	t     *testing.T
	build func() *Workflow
	wf    *Workflow
	page  *recorder
}

func newSession(t *testing.T, build func() *Workflow) *session {
	t.Helper()
	s := &session{t: t, build: build}
	s.wf = build()
	require.NoError(t, s.wf.Prepare(context.Background(), nil))
	s.render()
	return s
}

func (s *session) render() {
	s.t.Helper()
	s.page = &recorder{}
	require.NoError(s.t, s.wf.AddDisplay(s.page))
}

// submit posts the current page with the given intent key (empty for none)
// and extra field pairs.
func (s *session) submit(intent, value string, fields ...string) error {
	s.t.Helper()
	require.Zero(s.t, len(fields)%2, "fields must be key/value pairs")

	form := Submission{}
	for k, v := range s.page.hidden {
		form[k] = v
	}
	for i := 0; i < len(fields); i += 2 {
		form[fields[i]] = fields[i+1]
	}
	if intent != "" {
		form[intent] = value
	}

	s.wf = s.build()
	err := s.wf.Prepare(context.Background(), form)
	s.render()
	return err
}

func (s *session) current() int {
	idx, _ := s.wf.CurrentStep()
	return idx
}

// ticker builds background steps whose work advances one tick per value
// received on ticks.
type ticker struct {
	ticks   chan struct{}
	n       int
	started atomic.Int32
	forms   chan Data
}

func newTicker(t *testing.T, n int) *ticker {
	tk := &ticker{ticks: make(chan struct{}), n: n, forms: make(chan Data, 16)}
	t.Cleanup(func() { close(tk.ticks) })
	return tk
}

func (tk *ticker) step(ctx context.Context, wf *Workflow, form Data) (*action.BackgroundAction, error) {
	tk.started.Add(1)
	tk.forms <- form
	return action.New(wf.Registry(), func(ctx context.Context, a *action.BackgroundAction) error {
		for i := 0; i < tk.n; i++ {
			select {
			case <-tk.ticks:
				a.SetProgress((i + 1) * 100 / tk.n)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}, action.WithBackground(true), action.WithLogger(logging.Discard()))
}

// tick delivers n ticks, blocking until the work function takes each one.
func (tk *ticker) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.ticks <- struct{}{}:
		case <-time.After(2 * time.Second):
			t.Fatal("background work did not take a tick")
		}
	}
}

func waitFinished(t *testing.T, a action.Action) {
	t.Helper()
	require.NotNil(t, a)
	require.Eventually(t, func() bool { return !a.IsRunning() }, 2*time.Second, 5*time.Millisecond)
}

// consoleContains reports whether any console line of a contains substr.
func consoleContains(t *testing.T, a action.Action, substr string) bool {
	t.Helper()
	ba, ok := a.(*action.BackgroundAction)
	require.True(t, ok)
	for _, line := range ba.ConsoleData().ConsoleOutput {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// statusUpdates drains ch and returns the StatusUpdate events in it.
func statusUpdates(ch <-chan StatusEvent) []StatusEvent {
	var out []StatusEvent
	for {
		select {
		case ev := <-ch:
			if ev.Type == StatusUpdate {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}
