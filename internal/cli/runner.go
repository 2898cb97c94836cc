package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/tui"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// finishKey is the pseudo-button offered on a last step that has nothing
// left to submit. It never reaches the workflow.
const finishKey = "forge_finish"

// errAborted is returned when the user cancels a form.
var errAborted = &exitError{code: 130, msg: "aborted"}

// promptFunc lets the user fill in a rendered step.
type promptFunc func(ctx context.Context, r *tui.FormRenderer) error

// runner drives one workflow instance from the terminal. Every round trip
// goes through the same hidden fields a web form would carry: the step is
// rendered into a FormRenderer, answered, and its Submission is handed back
// to Prepare.
type runner struct {
	wf     *workflow.Workflow
	events <-chan workflow.Event
	theme  tui.Theme
	out    io.Writer

	// values are --set overrides applied to every rendered field of the
	// same name.
	values map[string]string
	// auto answers every step with NEXT instead of prompting.
	auto bool

	prompt  promptFunc
	follow  followFunc
	notices *noticePrinter

	followed  map[string]bool
	completed bool
}

func (r *runner) run(ctx context.Context) error {
	if r.followed == nil {
		r.followed = make(map[string]bool)
	}

	var (
		form     workflow.Submission
		nextFrom = -1 // step NEXT was last submitted on in auto mode
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.wf.Prepare(ctx, form); err != nil {
			return fmt.Errorf("applying submission: %w", err)
		}
		if r.drainEvents() {
			r.printDone()
			return nil
		}
		idx, step := r.wf.CurrentStep()

		if a := r.unfollowed(); a != nil {
			r.followed[a.ID()] = true
			fmt.Fprintln(r.out, r.theme.Title.Render(step.Title()))
			finished, err := r.follow(ctx, a, step.Title())
			if err != nil {
				return err
			}
			if finished {
				sub, err := r.acknowledge()
				if err != nil {
					return err
				}
				form, nextFrom = sub, idx
				continue
			}
		} else if r.auto && nextFrom == idx && r.wf.ActiveAction() == nil {
			return r.stuck(step)
		}

		fr := tui.NewFormRenderer(r.theme, step.Title())
		if err := r.wf.AddDisplay(fr); err != nil {
			return err
		}
		finishable := r.wf.IsLastStep() && !fr.HasAction(workflow.KeyNext)
		if finishable {
			fr.AddButton(workflow.Button{Name: finishKey, Label: "Finish", Primary: true})
		}
		for name, v := range r.values {
			fr.SetValue(name, v)
		}
		if a := r.running(); a != nil && !hasEnabled(fr.Buttons()) {
			// Nothing to choose while the action runs: watch it again.
			delete(r.followed, a.ID())
			form = fr.Submission()
			continue
		}

		if r.auto {
			r.printStep(fr)
			if finishable {
				r.printDone()
				return nil
			}
			if err := fr.Choose(workflow.KeyNext); err != nil {
				return fmt.Errorf("step %q: %w", step.Name(), err)
			}
			nextFrom = idx
		} else if err := r.prompt(ctx, fr); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return errAborted
			}
			return err
		}

		sub := fr.Submission()
		if _, ok := sub[finishKey]; ok {
			r.printDone()
			return nil
		}
		form = sub
	}
}

// unfollowed returns the active action when it has not been shown yet.
func (r *runner) unfollowed() *action.BackgroundAction {
	a, ok := r.wf.ActiveAction().(*action.BackgroundAction)
	if !ok || a == nil || r.followed[a.ID()] {
		return nil
	}
	return a
}

func (r *runner) running() *action.BackgroundAction {
	a, ok := r.wf.ActiveAction().(*action.BackgroundAction)
	if !ok || a == nil || !a.IsRunning() {
		return nil
	}
	return a
}

func hasEnabled(buttons []workflow.Button) bool {
	for _, b := range buttons {
		if !b.Disabled {
			return true
		}
	}
	return false
}

// acknowledge submits NEXT for the current step, which acknowledges a
// finished background action and moves on.
func (r *runner) acknowledge() (workflow.Submission, error) {
	fr := tui.NewFormRenderer(r.theme, "")
	if err := r.wf.AddDisplay(fr); err != nil {
		return nil, err
	}
	if err := fr.Choose(workflow.KeyNext); err != nil {
		return nil, err
	}
	return fr.Submission(), nil
}

// drainEvents consumes pending workflow events and reports whether the
// workflow has completed.
func (r *runner) drainEvents() bool {
	for {
		select {
		case ev := <-r.events:
			r.wf.Logger().Debug("workflow event", "type", ev.Type, "step", ev.Step, "message", ev.Message)
			if ev.Type == workflow.WEWorkflowCompleted {
				r.completed = true
			}
		default:
			return r.completed
		}
	}
}

func (r *runner) stuck(step workflow.Step) error {
	reason := "input was rejected"
	if r.notices != nil && r.notices.last != "" {
		reason = r.notices.last
	}
	return fmt.Errorf("step %q did not advance: %s", step.Name(), reason)
}

func (r *runner) printStep(fr *tui.FormRenderer) {
	if fr.Title() != "" {
		fmt.Fprintln(r.out, r.theme.Title.Render(fr.Title()))
	}
	for _, text := range fr.Texts() {
		fmt.Fprintln(r.out, r.theme.Text.Render(text))
	}
}

func (r *runner) printDone() {
	msg := fmt.Sprintf("%s workflow %q completed", r.theme.StatusIndicator(false, false), r.wf.Name())
	fmt.Fprintln(r.out, r.theme.StatusCompleted.Render(msg))
}
