package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/config"
)

// ErrInvalidConfig is returned by FromConfig when ValidateConfig reports
// errors.
var ErrInvalidConfig = errors.New("invalid workflow configuration")

// ExitError is the failure of a command step whose process exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.Code)
}

// FromConfig builds a workflow from its declarative configuration. Steps
// with a command become background steps; all other steps only display
// their text and fields and advance. Text, command and dir expand ${field}
// references from the workflow data.
func FromConfig(name string, cfg config.WorkflowConfig, reg *action.Registry, opts ...Option) (*Workflow, error) {
	result := ValidateConfig(cfg)
	if !result.IsValid() {
		return nil, fmt.Errorf("%w %q:\n%s", ErrInvalidConfig, name, result.String())
	}

	if cfg.Description != "" {
		opts = append([]Option{WithDescription(cfg.Description)}, opts...)
	}
	wf := New(name, reg, opts...)
	for _, sc := range cfg.Steps {
		wf.AddStep(stepFromConfig(sc))
	}
	return wf, nil
}

func stepFromConfig(sc config.StepConfig) Step {
	opts := []StepOption{WithNote(stepNote(sc))}
	if sc.Title != "" {
		opts = append(opts, WithTitle(sc.Title))
	}
	if sc.Command != "" {
		opts = append(opts, WithBackgroundAction(commandAction(sc)))
	}
	if sc.VisibleIf != "" {
		// ValidateConfig has already rejected unparsable conditions.
		if cond, err := ParseCondition(sc.VisibleIf); err == nil {
			opts = append(opts, WithCondition(cond))
		}
	}
	if sc.Skippable {
		opts = append(opts, WithSkip(func(context.Context, *Workflow, Data) error { return nil }))
	}
	if sc.AllowRedo {
		opts = append(opts, WithRedo())
	}
	return NewStep(sc.Name, configDisplay(sc), opts...)
}

func configDisplay(sc config.StepConfig) DisplayFunc {
	return func(r Renderer, data Data) error {
		if sc.Text != "" {
			r.AddText(expandText(sc.Text, data))
		}
		for _, f := range sc.Fields {
			value := data.String(f.Name)
			if _, ok := data[f.Name]; !ok {
				value = f.Default
			}
			label := f.Label
			if label == "" {
				label = f.Name
			}
			r.AddField(Field{
				Name:        f.Name,
				Label:       label,
				Value:       value,
				Placeholder: f.Placeholder,
				Options:     append([]string(nil), f.Options...),
			})
		}
		if sc.Command != "" {
			r.AddText("$ " + expandCommand(sc.Command, data))
		}
		return nil
	}
}

// commandStatusCategory is the status category of command steps.
const commandStatusCategory = "command"

// commandAction runs the step's command as the supervised process of a
// BackgroundAction. The command line is expanded when NEXT is pressed, so
// it sees the fields submitted with the step.
func commandAction(sc config.StepConfig) BackgroundFunc {
	return func(_ context.Context, wf *Workflow, _ Data) (*action.BackgroundAction, error) {
		data := wf.Data()
		command := expandCommand(sc.Command, data)
		dir := expandText(sc.Dir, data)

		triggers := make([]action.Trigger, 0, len(sc.Triggers))
		for _, t := range sc.Triggers {
			triggers = append(triggers, action.Trigger{Match: t.Match, Response: expandText(t.Response, data)})
		}

		opts := append(wf.ActionOptions(),
			action.WithBackground(sc.Background),
			action.WithTriggers(triggers...),
		)
		status := wf.Status()
		return action.New(wf.Registry(), func(_ context.Context, a *action.BackgroundAction) error {
			a.ConsoleWrite("$ "+command, log.InfoLevel)
			status.EmitStatus(commandStatusCategory, "running "+sc.Name, -1, command, sc.Name)
			if err := a.ProcessExec(command, dir, sc.Shell); err != nil {
				status.EmitStatus(commandStatusCategory, sc.Name+" failed to start", -1, err.Error(), sc.Name)
				return err
			}
			a.ProcessWait(0)
			if code := a.ExitCode(); code != 0 {
				status.EmitStatus(commandStatusCategory, fmt.Sprintf("%s exited with code %d", sc.Name, code), -1, command, sc.Name)
				return &ExitError{Command: command, Code: code}
			}
			a.SetProgress(100)
			status.EmitStatus(commandStatusCategory, sc.Name+" finished", 100, command, sc.Name)
			return nil
		}, opts...)
	}
}

// expandText substitutes ${field} references verbatim. $$ yields a literal $.
func expandText(s string, data Data) string {
	if s == "" {
		return ""
	}
	return os.Expand(s, func(key string) string {
		if key == "$" {
			return "$"
		}
		return data.String(key)
	})
}

// expandCommand substitutes ${field} references as single shell words, so
// submitted values can neither split into several arguments nor inject
// shell syntax.
func expandCommand(s string, data Data) string {
	return os.Expand(s, func(key string) string {
		if key == "$" {
			return "$"
		}
		return ShellQuote(data.String(key))
	})
}

// ShellQuote quotes v as a single POSIX shell word. Values made only of
// characters that need no quoting are returned unchanged.
func ShellQuote(v string) string {
	if v == "" {
		return "''"
	}
	if strings.IndexFunc(v, func(r rune) bool { return !isShellSafe(r) }) < 0 {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:,=@%+", r)
}

// stepNote summarizes a configured step for plans.
func stepNote(sc config.StepConfig) string {
	var parts []string
	if len(sc.Fields) > 0 {
		names := make([]string, len(sc.Fields))
		for i, f := range sc.Fields {
			names[i] = f.Name
		}
		parts = append(parts, "fields: "+strings.Join(names, ", "))
	}
	if sc.Command != "" {
		parts = append(parts, "$ "+sc.Command)
	}
	return strings.Join(parts, "; ")
}
