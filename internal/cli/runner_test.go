package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/tui"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// newBatchRunner wires the built-in batch workflow to a runner that prints
// into out and follows actions by tailing their console.
func newBatchRunner(t *testing.T, out *bytes.Buffer, values map[string]string) *runner {
	t.Helper()
	reg := action.NewRegistry(action.WithRegistryLogger(logging.Discard()))
	events := make(chan workflow.Event, 64)
	theme := tui.DefaultTheme()
	notices := &noticePrinter{w: out, theme: theme}

	wf, err := workflow.NewBatch(reg,
		workflow.WithLogger(logging.Discard()),
		workflow.WithNotifier(notices),
		workflow.WithEventChannel(events),
		workflow.WithActionOptions(action.WithLogger(logging.Discard()), action.WithGraceDelay(time.Millisecond)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		for _, a := range reg.All() {
			if ba, ok := a.(*action.BackgroundAction); ok {
				_ = ba.Delete()
			}
		}
	})

	return &runner{
		wf:      wf,
		events:  events,
		theme:   theme,
		out:     out,
		values:  values,
		auto:    true,
		notices: notices,
		follow:  tailFollower(out, time.Millisecond),
	}
}

func runWithTimeout(t *testing.T, r *runner) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.run(ctx)
}

func TestRunner_AutoCompletesBatch(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, map[string]string{"items": "a,b", "delay": "1ms"})

	require.NoError(t, runWithTimeout(t, r))

	got := out.String()
	assert.Contains(t, got, "Items")
	assert.Contains(t, got, "processing a (1/2)")
	assert.Contains(t, got, "processing b (2/2)")
	assert.Contains(t, got, "Processed 2 item(s).")
	assert.Contains(t, got, `workflow "batch" completed`)
	assert.Less(t, strings.Index(got, "processing a"), strings.Index(got, "Processed 2"))
}

func TestRunner_AutoStuckOnRejectedInput(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, map[string]string{"delay": "1ms"})

	err := runWithTimeout(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "input" did not advance`)
	assert.Contains(t, err.Error(), "enter at least one item")
	assert.Contains(t, out.String(), "WARN:")
}

func TestRunner_PromptFinishesOnPseudoButton(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, map[string]string{"items": "x", "delay": "1ms"})
	r.auto = false

	var titles []string
	var lastButtons []workflow.Button
	r.prompt = func(_ context.Context, fr *tui.FormRenderer) error {
		titles = append(titles, fr.Title())
		lastButtons = fr.Buttons()
		return nil
	}

	require.NoError(t, runWithTimeout(t, r))
	assert.Equal(t, []string{"Items", "Done"}, titles)

	var names []string
	for _, b := range lastButtons {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, finishKey)
	assert.Contains(t, out.String(), `workflow "batch" completed`)
}

func TestRunner_PromptRedoRunsStepAgain(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, map[string]string{"items": "x", "delay": "1ms"})
	r.auto = false

	redone := false
	r.prompt = func(_ context.Context, fr *tui.FormRenderer) error {
		if fr.Title() == "Done" && !redone {
			redone = true
			return fr.Choose(workflow.KeyRedoLast)
		}
		return nil
	}

	require.NoError(t, runWithTimeout(t, r))
	assert.Equal(t, 2, strings.Count(out.String(), "processing x (1/1)"))
}

func TestRunner_PromptAbort(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, nil)
	r.auto = false
	r.prompt = func(context.Context, *tui.FormRenderer) error {
		return huh.ErrUserAborted
	}

	err := runWithTimeout(t, r)
	assert.Equal(t, errAborted, err)
}

func TestRunner_CanceledContext(t *testing.T) {
	var out bytes.Buffer
	r := newBatchRunner(t, &out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.run(ctx), context.Canceled)
}

func TestHasEnabled(t *testing.T) {
	assert.False(t, hasEnabled(nil))
	assert.False(t, hasEnabled([]workflow.Button{{Name: "a", Disabled: true}}))
	assert.True(t, hasEnabled([]workflow.Button{{Name: "a", Disabled: true}, {Name: "b"}}))
}
