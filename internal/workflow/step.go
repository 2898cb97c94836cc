package workflow

import (
	"context"
	"errors"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
)

// Kind classifies what NEXT does on a step.
type Kind int

const (
	// KindNone steps only display and advance.
	KindNone Kind = iota
	// KindPlain steps run an ActionFunc synchronously before advancing.
	KindPlain
	// KindBackground steps start a BackgroundAction and only advance once it
	// has finished.
	KindBackground
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindBackground:
		return "background"
	default:
		return "none"
	}
}

// DisplayFunc renders a step into r from the current workflow data.
type DisplayFunc func(r Renderer, data Data) error

// ActionFunc is the synchronous action of a plain step. form holds the fields
// submitted with the step.
type ActionFunc func(ctx context.Context, wf *Workflow, form Data) error

// BackgroundFunc creates (but does not start) the BackgroundAction of a
// background step. The workflow starts it.
type BackgroundFunc func(ctx context.Context, wf *Workflow, form Data) (*action.BackgroundAction, error)

// SkipFunc runs when the user skips a step.
type SkipFunc func(ctx context.Context, wf *Workflow, form Data) error

// VisibleFunc decides whether a step is part of the navigation given the
// current workflow data.
type VisibleFunc func(data Data) bool

// ValidationError is returned by step callbacks to reject user input. It is
// reported to the user at warning level and keeps the workflow on the step.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid is shorthand for returning a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Step is an immutable step descriptor. Build it with NewStep.
type Step struct {
	name       string
	title      string
	display    DisplayFunc
	action     ActionFunc
	background BackgroundFunc
	skip       SkipFunc
	visible    VisibleFunc
	condition  string
	note       string
	allowRedo  bool
}

// StepOption configures a Step.
type StepOption func(*Step)

// WithTitle sets the human readable title. Defaults to the step name.
func WithTitle(title string) StepOption {
	return func(s *Step) { s.title = title }
}

// WithAction makes the step a plain action step. It replaces any background
// action set earlier.
func WithAction(fn ActionFunc) StepOption {
	return func(s *Step) {
		s.action = fn
		s.background = nil
	}
}

// WithBackgroundAction makes the step a background step. It replaces any
// plain action set earlier.
func WithBackgroundAction(fn BackgroundFunc) StepOption {
	return func(s *Step) {
		s.background = fn
		s.action = nil
	}
}

// WithSkip makes the step skippable.
func WithSkip(fn SkipFunc) StepOption {
	return func(s *Step) { s.skip = fn }
}

// WithVisibility sets the visibility predicate.
func WithVisibility(fn VisibleFunc) StepOption {
	return func(s *Step) { s.visible = fn }
}

// WithCondition makes the step visible only while c holds. The condition's
// source expression is kept for plans and logs.
func WithCondition(c Condition) StepOption {
	return func(s *Step) {
		s.visible = c.Eval
		s.condition = c.String()
	}
}

// WithNote attaches a one-line description shown in plans.
func WithNote(note string) StepOption {
	return func(s *Step) { s.note = note }
}

// WithRedo lets the step offer a redo of the preceding step.
func WithRedo() StepOption {
	return func(s *Step) { s.allowRedo = true }
}

// NewStep builds a step. display may be nil for steps without content.
func NewStep(name string, display DisplayFunc, opts ...StepOption) Step {
	s := Step{name: name, display: display}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Name returns the step name.
func (s Step) Name() string { return s.name }

// Title returns the title, falling back to the name.
func (s Step) Title() string {
	if s.title != "" {
		return s.title
	}
	return s.name
}

// Kind returns the action kind of the step.
func (s Step) Kind() Kind {
	switch {
	case s.background != nil:
		return KindBackground
	case s.action != nil:
		return KindPlain
	default:
		return KindNone
	}
}

// AllowRedo reports whether the step offers REDO_LAST.
func (s Step) AllowRedo() bool { return s.allowRedo }

// Note returns the plan description of the step.
func (s Step) Note() string { return s.note }

// Condition returns the visibility expression set with WithCondition, or ""
// when the step is always visible or uses a custom predicate.
func (s Step) Condition() string { return s.condition }

// Skippable reports whether the step has a skip callback.
func (s Step) Skippable() bool { return s.skip != nil }

// IsVisible evaluates the visibility predicate. Steps without one are always
// visible.
func (s Step) IsVisible(data Data) bool {
	if s.visible == nil {
		return true
	}
	return s.visible(data)
}
