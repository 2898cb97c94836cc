package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// ErrNoAction is returned by Choose for a button that is missing or
// disabled on the rendered step.
var ErrNoAction = errors.New("no such action on this step")

// Compile-time interface check.
var _ workflow.Renderer = (*FormRenderer)(nil)

// FormRenderer collects a rendered step and turns it into a huh form. After
// the form has run, Submission returns what the user entered together with
// the hidden state fields and the chosen button.
type FormRenderer struct {
	theme   Theme
	title   string
	texts   []string
	fields  []workflow.Field
	values  []string
	hidden  map[string]string
	buttons []workflow.Button

	// choice is the index of the chosen button in buttons, as a string so a
	// huh.Select can bind to it.
	choice string
}

// NewFormRenderer creates an empty renderer. title heads the form.
func NewFormRenderer(theme Theme, title string) *FormRenderer {
	return &FormRenderer{theme: theme, title: title, hidden: make(map[string]string)}
}

// AddText implements workflow.Renderer.
func (r *FormRenderer) AddText(text string) {
	r.texts = append(r.texts, text)
}

// AddField implements workflow.Renderer. The field's Value is the initial
// input value.
func (r *FormRenderer) AddField(f workflow.Field) {
	r.fields = append(r.fields, f)
	r.values = append(r.values, f.Value)
}

// AddHidden implements workflow.Renderer.
func (r *FormRenderer) AddHidden(name, value string) {
	r.hidden[name] = value
}

// AddButton implements workflow.Renderer.
func (r *FormRenderer) AddButton(b workflow.Button) {
	r.buttons = append(r.buttons, b)
	if r.choice == "" && b.Primary && !b.Disabled {
		r.choice = strconv.Itoa(len(r.buttons) - 1)
	}
}

// Title returns the form title.
func (r *FormRenderer) Title() string { return r.title }

// Texts returns the text blocks in render order.
func (r *FormRenderer) Texts() []string { return append([]string(nil), r.texts...) }

// Fields returns the fields with their current values.
func (r *FormRenderer) Fields() []workflow.Field {
	out := make([]workflow.Field, len(r.fields))
	for i, f := range r.fields {
		f.Value = r.values[i]
		out[i] = f
	}
	return out
}

// Buttons returns every button, including disabled ones.
func (r *FormRenderer) Buttons() []workflow.Button { return append([]workflow.Button(nil), r.buttons...) }

// HasAction reports whether an enabled button submits name.
func (r *FormRenderer) HasAction(name string) bool {
	_, ok := r.find(name)
	return ok
}

// SetValue overrides the value of field name. It reports whether the step
// renders such a field.
func (r *FormRenderer) SetValue(name, value string) bool {
	for i, f := range r.fields {
		if f.Name == name {
			r.values[i] = value
			return true
		}
	}
	return false
}

// Choose selects the first enabled button named name.
func (r *FormRenderer) Choose(name string) error {
	i, ok := r.find(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoAction)
	}
	r.choice = strconv.Itoa(i)
	return nil
}

func (r *FormRenderer) find(name string) (int, bool) {
	for i, b := range r.buttons {
		if b.Name == name && !b.Disabled {
			return i, true
		}
	}
	return 0, false
}

// Submission returns the form as submitted: hidden fields, field values and
// the chosen button. Without a chosen button no intent is included, which
// re-renders the step.
func (r *FormRenderer) Submission() workflow.Submission {
	form := make(workflow.Submission, len(r.hidden)+len(r.fields)+1)
	for k, v := range r.hidden {
		form[k] = v
	}
	for i, f := range r.fields {
		form[f.Name] = r.values[i]
	}
	if i, err := strconv.Atoi(r.choice); err == nil && i >= 0 && i < len(r.buttons) {
		b := r.buttons[i]
		value := b.Value
		if value == "" {
			value = "1"
		}
		form[b.Name] = value
	}
	return form
}

// Form builds the huh form for the step: a note with the step text, one
// input per field (a select when the field has options) and a select over
// the enabled buttons. It returns nil when there is nothing to show.
func (r *FormRenderer) Form() *huh.Form {
	var fields []huh.Field

	if len(r.texts) > 0 || r.title != "" {
		fields = append(fields, huh.NewNote().
			Title(r.title).
			Description(strings.Join(r.texts, "\n")))
	}

	for i, f := range r.fields {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		if len(f.Options) > 0 {
			fields = append(fields, huh.NewSelect[string]().
				Title(label).
				Options(huh.NewOptions(f.Options...)...).
				Value(&r.values[i]))
			continue
		}
		fields = append(fields, huh.NewInput().
			Title(label).
			Placeholder(f.Placeholder).
			Value(&r.values[i]))
	}

	var options []huh.Option[string]
	for i, b := range r.buttons {
		if b.Disabled {
			continue
		}
		options = append(options, huh.NewOption(b.Label, strconv.Itoa(i)))
	}
	if len(options) > 0 {
		if r.choice == "" {
			r.choice = options[0].Value
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Action").
			Options(options...).
			Value(&r.choice))
	}

	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(r.theme.FormTheme())
}

// Run shows the form on the terminal and blocks until it is submitted.
// huh.ErrUserAborted is returned when the user cancels.
func (r *FormRenderer) Run(ctx context.Context) error {
	f := r.Form()
	if f == nil {
		return nil
	}
	return f.RunWithContext(ctx)
}
