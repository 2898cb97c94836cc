// Package workflow drives multi-step wizards whose state travels in hidden
// form fields and whose long steps run as background actions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

var (
	// ErrInvalidStep is returned by Prepare when the submitted current step
	// is not a valid step index.
	ErrInvalidStep = errors.New("invalid step index")

	// ErrNoSteps is returned when a workflow without steps is prepared or
	// displayed.
	ErrNoSteps = errors.New("workflow has no steps")
)

// reloadFragment is the fragment name passed to Status.EmitReload when a
// background action of the workflow finishes.
const reloadFragment = "workflow"

// ActionName returns the display name the workflow gives to the background
// action of step index, used to find the action again by name.
func ActionName(workflow string, index int) string {
	return fmt.Sprintf("%s/step-%d", workflow, index)
}

// Workflow is a multi-step wizard driven by form submissions. Each request
// calls Prepare with the submitted form and then AddDisplay to render the
// resulting step. The state needed between requests travels in hidden form
// fields, so a Workflow can be rebuilt from scratch for every request.
//
// A Workflow is not safe for concurrent use; callers serialize requests per
// workflow instance. It never blocks on a BackgroundAction and only observes
// whether the active one is still running.
type Workflow struct {
	name        string
	description string
	registry    *action.Registry
	actionOpts  []action.Option
	notifier    Notifier
	status      Status
	logger      *log.Logger
	events      chan<- Event

	steps    []Step
	current  int
	data     Data
	visible  []int
	active   action.Action
	prepared bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithNotifier sets the collaborator that shows callback failures and
// validation messages to the user. Defaults to a LogNotifier.
func WithNotifier(n Notifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// WithStatus sets the live status sink. When set, the workflow reloads the
// page when one of its background actions finishes.
func WithStatus(s Status) Option {
	return func(w *Workflow) { w.status = s }
}

// WithLogger attaches a charmbracelet/log Logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

// WithEventChannel sets the channel on which the workflow broadcasts Events.
// Sends are non-blocking so a slow consumer never stalls a request.
func WithEventChannel(ch chan<- Event) Option {
	return func(w *Workflow) { w.events = ch }
}

// WithDescription sets the one-line summary shown in listings and plans.
func WithDescription(desc string) Option {
	return func(w *Workflow) { w.description = desc }
}

// WithActionOptions sets options every step passes to the background actions
// it creates, typically engine-wide console sizes and grace delay.
func WithActionOptions(opts ...action.Option) Option {
	return func(w *Workflow) { w.actionOpts = append(w.actionOpts, opts...) }
}

// New creates an empty workflow. reg is where background actions of the
// workflow register and where they are looked up again on restore.
func New(name string, reg *action.Registry, opts ...Option) *Workflow {
	w := &Workflow{
		name:     name,
		registry: reg,
		data:     Data{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.New("workflow")
	}
	if w.notifier == nil {
		w.notifier = LogNotifier{Logger: w.logger}
	}
	if w.status == nil {
		w.status = NopStatus{}
	}
	return w
}

// AddStep appends a step. Step indices never change once added.
func (w *Workflow) AddStep(step Step) {
	w.steps = append(w.steps, step)
	w.refreshVisible()
}

// Prepare applies a form submission. A submission without FieldCurrentStep
// (including nil) initializes the workflow at its first visible step.
// Otherwise the state is restored from the hidden fields and the intent the
// submission carries, if any, is applied.
//
// Callback failures are reported through the Notifier and leave the
// workflow on the current step; they are not returned. The returned error
// is non-nil only when the hidden fields cannot be trusted (ErrInvalidStep,
// ErrStateCorrupt), in which case the previous state is kept.
func (w *Workflow) Prepare(ctx context.Context, form Submission) error {
	if len(w.steps) == 0 {
		return ErrNoSteps
	}

	raw, ok := form[FieldCurrentStep]
	if !ok {
		w.initialize()
		return nil
	}
	if err := w.restore(raw, form); err != nil {
		w.logger.Warn("submission rejected", "workflow", w.name, "error", err)
		return err
	}

	switch intent := parseIntent(form); intent {
	case IntentNext:
		w.next(ctx, form)
	case IntentPrev:
		w.prev()
	case IntentSkip:
		w.skip(ctx, form)
	case IntentRedoLast:
		w.redoLast(ctx, form)
	case IntentRedo:
		w.redo(form)
	}
	return nil
}

// parseIntent returns the intent a submission carries. Submissions are
// expected to carry at most one marker; redo markers win over navigation.
func parseIntent(form Submission) Intent {
	for _, c := range []struct {
		key    string
		intent Intent
	}{
		{KeyRedo, IntentRedo},
		{KeyRedoLast, IntentRedoLast},
		{KeyPrev, IntentPrev},
		{KeySkip, IntentSkip},
		{KeyNext, IntentNext},
	} {
		if _, ok := form[c.key]; ok {
			return c.intent
		}
	}
	return IntentNone
}

func (w *Workflow) initialize() {
	if w.data == nil {
		w.data = Data{}
	}
	w.active = nil
	w.refreshVisible()
	w.prepared = true
	first := 0
	if len(w.visible) > 0 {
		first = w.visible[0]
	}
	w.moveTo(first)
}

func (w *Workflow) restore(raw string, form Submission) error {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 || idx >= len(w.steps) {
		return fmt.Errorf("%w: %q", ErrInvalidStep, raw)
	}

	data := w.data
	if encoded, ok := form[FieldState]; ok {
		if data, err = DecodeState(encoded); err != nil {
			return err
		}
	}
	if data == nil {
		data = Data{}
	}

	w.current = idx
	w.data = data
	w.prepared = true
	w.refreshVisible()
	w.reattach(form[FieldAction])
	return nil
}

// reattach restores the active action of the current step when its thread
// flag is set: first by the explicit handle, then by name.
func (w *Workflow) reattach(handle string) {
	if !w.flag(w.current) {
		w.active = nil
		return
	}
	if w.active != nil && (handle == "" || w.active.ID() == handle) {
		return
	}
	w.active = nil
	if w.registry == nil {
		return
	}
	if handle != "" {
		if a, ok := w.registry.FindByID(handle); ok {
			w.active = a
			return
		}
	}
	w.active = w.findByName(ActionName(w.name, w.current))
}

// findByName prefers a running action when several share the name, then the
// most recently registered one.
func (w *Workflow) findByName(name string) action.Action {
	candidates := w.registry.FindAllByName(name)
	if len(candidates) == 0 {
		return nil
	}
	for _, a := range candidates {
		if a.IsRunning() {
			return a
		}
	}
	return candidates[len(candidates)-1]
}

func (w *Workflow) next(ctx context.Context, form Submission) {
	idx := w.current
	step := w.steps[idx]

	if step.Kind() == KindBackground {
		switch {
		case !w.flag(idx):
			fields := w.persist(form)
			if !w.startBackground(ctx, idx, fields) {
				w.settle()
			}
		case w.active != nil && w.active.IsRunning():
			w.logger.Debug("action still running", "workflow", w.name, "step", step.Name())
		default:
			w.finishActive(idx)
			w.advance(ctx, true)
		}
		return
	}

	fields := w.persist(form)
	if step.action != nil {
		ok := w.guard(idx, "action", func() error { return step.action(ctx, w, fields) })
		if !ok {
			w.settle()
			return
		}
	}
	w.advance(ctx, true)
}

// settle keeps the current step visible after a rejected submission whose
// persisted fields hid it: the workflow moves to the nearest visible step
// before it, or after it when there is none.
func (w *Workflow) settle() {
	if len(w.visible) == 0 || contains(w.visible, w.current) {
		return
	}
	to, ok := prevIn(w.visible, w.current)
	if !ok {
		to, _ = nextIn(w.visible, w.current)
	}
	w.active = nil
	w.moveTo(to)
}

func (w *Workflow) prev() {
	w.clearFlag(w.current)
	w.active = nil
	if p, ok := prevIn(w.visible, w.current); ok {
		w.moveTo(p)
	}
}

func (w *Workflow) skip(ctx context.Context, form Submission) {
	idx := w.current
	step := w.steps[idx]
	if step.skip != nil {
		fields := submittedFields(form)
		ok := w.guard(idx, "skip", func() error { return step.skip(ctx, w, fields) })
		if !ok {
			return
		}
	}
	w.clearFlag(idx)
	w.active = nil
	w.advance(ctx, false)
}

func (w *Workflow) redoLast(ctx context.Context, form Submission) {
	step := w.steps[w.current]
	if !step.AllowRedo() {
		w.reject(IntentRedoLast, fmt.Sprintf("step %q does not allow redo", step.Name()))
		return
	}
	fields := submittedFields(form)
	target, ok := prevIn(w.visibleFor(merge(w.data, fields)), w.current)
	if !ok {
		w.reject(IntentRedoLast, "no visible step before the current one")
		return
	}

	w.persist(form)
	w.clearFlag(target)
	w.active = nil
	w.emit(Event{Type: WERedo, Index: target, Step: w.steps[target].Name(),
		Message: fmt.Sprintf("redo of step %q", w.steps[target].Name())})
	w.moveTo(target)

	switch landed := w.steps[target]; landed.Kind() {
	case KindBackground:
		w.startBackground(ctx, target, fields)
	case KindPlain:
		w.guard(target, "action", func() error { return landed.action(ctx, w, fields) })
	}
}

func (w *Workflow) redo(form Submission) {
	raw := form[KeyRedo]
	target, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || target < 0 || target >= len(w.steps) {
		w.reject(IntentRedo, fmt.Sprintf("invalid redo target %q", raw))
		return
	}
	fields := submittedFields(form)
	if !contains(w.visibleFor(merge(w.data, fields)), target) {
		w.reject(IntentRedo, fmt.Sprintf("redo target %d is not visible", target))
		return
	}

	w.clearAllFlags()
	w.persist(form)
	w.active = nil
	w.emit(Event{Type: WERedo, Index: target, Step: w.steps[target].Name(),
		Message: fmt.Sprintf("redo from step %q", w.steps[target].Name())})
	w.moveTo(target)
}

// advance moves to the next visible step. With autoStart, a background step
// that is landed on and not started yet is started right away.
func (w *Workflow) advance(ctx context.Context, autoStart bool) {
	nxt, ok := nextIn(w.visible, w.current)
	if !ok {
		w.emit(Event{Type: WEWorkflowCompleted, Index: w.current, Step: w.steps[w.current].Name(),
			Message: fmt.Sprintf("workflow %q completed", w.name)})
		w.logger.Info("workflow completed", "workflow", w.name)
		return
	}
	w.moveTo(nxt)
	if autoStart && w.steps[nxt].Kind() == KindBackground && !w.flag(nxt) {
		w.startBackground(ctx, nxt, Data{})
	}
}

func (w *Workflow) startBackground(ctx context.Context, idx int, fields Data) bool {
	step := w.steps[idx]

	var a *action.BackgroundAction
	ok := w.guard(idx, "action", func() error {
		var err error
		a, err = step.background(ctx, w, fields)
		if err == nil && a == nil {
			err = errors.New("no background action returned")
		}
		return err
	})
	if !ok {
		return false
	}

	if a.Name() == action.DefaultName {
		a.SetName(ActionName(w.name, idx))
	}
	// The action outlives the request that started it.
	if err := a.Start(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, action.ErrAlreadyStarted) {
		w.fail(idx, "start", err)
		return false
	}

	w.active = a
	w.setFlag(idx)
	w.emit(Event{Type: WEActionStarted, Index: idx, Step: step.Name(), ActionID: a.ID(),
		Message: fmt.Sprintf("action %q started", a.Name())})
	w.logger.Debug("action started", "workflow", w.name, "step", step.Name(), "action", a.Name(), "id", a.ID())
	w.watch(a)
	return true
}

// watch re-enables navigation and reloads the page once a finishes.
func (w *Workflow) watch(a *action.BackgroundAction) {
	if _, nop := w.status.(NopStatus); nop {
		return
	}
	status := w.status
	status.DisableButton(KeyNext)
	go func() {
		<-a.Done()
		status.EnableButton(KeyNext)
		status.EmitReload(reloadFragment)
	}()
}

func (w *Workflow) finishActive(idx int) {
	if a := w.active; a != nil {
		if msg := a.Err(); msg != "" {
			w.notifier.Notify(log.WarnLevel, fmt.Sprintf("%s finished with error: %s", w.steps[idx].Title(), msg))
		}
		w.emit(Event{Type: WEActionFinished, Index: idx, Step: w.steps[idx].Name(), ActionID: a.ID(),
			Message: fmt.Sprintf("action %q finished", a.Name()), Error: a.Err()})
	}
	w.clearFlag(idx)
	w.active = nil
}

// persist merges the non-reserved submitted fields into the workflow data
// and returns them.
func (w *Workflow) persist(form Submission) Data {
	fields := submittedFields(form)
	for k, v := range fields {
		w.data[k] = v
	}
	w.refreshVisible()
	return fields
}

func submittedFields(form Submission) Data {
	fields := Data{}
	for k, v := range form {
		if isControlKey(k) {
			continue
		}
		fields[k] = v
	}
	return fields
}

func merge(base, extra Data) Data {
	out := base.Clone()
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (w *Workflow) flag(idx int) bool {
	v, _ := w.data[ThreadFlagKey(idx)].(bool)
	return v
}

func (w *Workflow) setFlag(idx int) { w.data[ThreadFlagKey(idx)] = true }

func (w *Workflow) clearFlag(idx int) { delete(w.data, ThreadFlagKey(idx)) }

func (w *Workflow) clearAllFlags() {
	for k := range w.data {
		if strings.HasPrefix(k, threadFlagPrefix) {
			delete(w.data, k)
		}
	}
}

func (w *Workflow) refreshVisible() {
	w.visible = w.visibleFor(w.data)
}

func (w *Workflow) visibleFor(data Data) []int {
	visible := make([]int, 0, len(w.steps))
	for i, s := range w.steps {
		if w.stepVisible(s, data) {
			visible = append(visible, i)
		}
	}
	return visible
}

// stepVisible treats a panicking predicate as visible so the step can still
// be reached and its failure seen.
func (w *Workflow) stepVisible(s Step, data Data) (visible bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("visibility predicate panicked", "workflow", w.name, "step", s.Name(), "panic", r)
			visible = true
		}
	}()
	return s.IsVisible(data)
}

func nextIn(visible []int, from int) (int, bool) {
	for _, v := range visible {
		if v > from {
			return v, true
		}
	}
	return 0, false
}

func prevIn(visible []int, from int) (int, bool) {
	for i := len(visible) - 1; i >= 0; i-- {
		if visible[i] < from {
			return visible[i], true
		}
	}
	return 0, false
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (w *Workflow) moveTo(idx int) {
	w.current = idx
	step := w.steps[idx]
	w.emit(Event{Type: WEStepEntered, Index: idx, Step: step.Name(),
		Message: fmt.Sprintf("step %q entered", step.Name())})
	w.logger.Debug("step entered", "workflow", w.name, "step", step.Name(), "index", idx)
}

func (w *Workflow) reject(intent Intent, reason string) {
	step := w.steps[w.current]
	w.logger.Warn("intent rejected", "workflow", w.name, "step", step.Name(), "intent", intent, "reason", reason)
	w.emit(Event{Type: WERejected, Index: w.current, Step: step.Name(), Message: reason})
}

// panicError is a recovered callback panic with the stack it was raised on.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// safeCall runs fn converting a panic into a *panicError.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}

// guard runs a step callback and reports its failure. It returns true when
// the callback succeeded.
func (w *Workflow) guard(idx int, stage string, fn func() error) bool {
	err := safeCall(fn)
	if err == nil {
		return true
	}
	w.fail(idx, stage, err)
	return false
}

func (w *Workflow) fail(idx int, stage string, err error) {
	step := w.steps[idx]
	if IsValidationError(err) {
		w.logger.Warn("input rejected", "workflow", w.name, "step", step.Name(), "error", err)
		w.notifier.Notify(log.WarnLevel, err.Error())
		return
	}

	kvs := []any{"workflow", w.name, "step", step.Name(), "stage", stage, "error", err}
	var pe *panicError
	if errors.As(err, &pe) {
		kvs = append(kvs, "stack", string(pe.stack))
	}
	w.logger.Error("step callback failed", kvs...)
	w.notifier.Notify(log.ErrorLevel, fmt.Sprintf("%s: %v", step.Title(), err))
	w.emit(Event{Type: WEStepFailed, Index: idx, Step: step.Name(), Error: err.Error(),
		Message: fmt.Sprintf("step %q %s failed: %v", step.Name(), stage, err)})
}

// emit sends ev using a non-blocking select so that a slow consumer never
// stalls a request.
func (w *Workflow) emit(ev Event) {
	if w.events == nil {
		return
	}
	ev.Workflow = w.name
	ev.Timestamp = time.Now()
	select {
	case w.events <- ev:
	default:
	}
}

// AddDisplay renders the current step into r followed by the hidden state
// fields and the navigation buttons. A display callback failure is reported
// like any other callback failure; the hidden fields are still emitted so
// the next submission can recover.
func (w *Workflow) AddDisplay(r Renderer) error {
	if len(w.steps) == 0 {
		return ErrNoSteps
	}
	if !w.prepared {
		w.initialize()
	}

	idx := w.current
	step := w.steps[idx]
	if step.display != nil {
		data := w.data.Clone()
		w.guard(idx, "display", func() error { return step.display(r, data) })
	}

	state, err := EncodeState(w.data)
	if err != nil {
		return err
	}
	handle := ""
	if w.active != nil {
		handle = w.active.ID()
	}
	r.AddHidden(FieldCurrentStep, strconv.Itoa(idx))
	r.AddHidden(FieldState, state)
	r.AddHidden(FieldAction, handle)

	for _, b := range w.buttons() {
		r.AddButton(b)
	}
	return nil
}

func (w *Workflow) buttons() []Button {
	step := w.steps[w.current]
	running := w.active != nil && w.active.IsRunning()
	last := w.IsLastStep()

	var out []Button
	if !w.IsFirstStep() {
		out = append(out, Button{Name: KeyPrev, Label: "Back"})
	}
	if step.Skippable() {
		out = append(out, Button{Name: KeySkip, Label: "Skip", Disabled: running})
	}
	if !last || step.Kind() != KindNone {
		label := "Next"
		switch {
		case step.Kind() == KindBackground && !w.flag(w.current):
			label = "Start"
		case last:
			label = "Finish"
		}
		out = append(out, Button{Name: KeyNext, Label: label, Primary: true, Disabled: running})
	}
	if step.AllowRedo() {
		out = append(out, Button{Name: KeyRedoLast, Label: "Redo"})
	}
	return out
}

// AddRedoButton appends a button that jumps back to target, merging the
// submitted fields and resetting every background step.
func (w *Workflow) AddRedoButton(r Renderer, label string, target int) {
	r.AddButton(Button{Name: KeyRedo, Label: label, Value: strconv.Itoa(target)})
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Description returns the one-line summary set with WithDescription.
func (w *Workflow) Description() string { return w.description }

// ActionOptions returns a copy of the options set with WithActionOptions.
func (w *Workflow) ActionOptions() []action.Option {
	return append([]action.Option(nil), w.actionOpts...)
}

// Registry returns the registry background actions of this workflow use.
func (w *Workflow) Registry() *action.Registry { return w.registry }

// Status returns the live status sink. Work functions may keep it and push
// progress from their own goroutine; it is never nil.
func (w *Workflow) Status() Status { return w.status }

// Logger returns the workflow logger, for callbacks that log on its behalf.
func (w *Workflow) Logger() *log.Logger { return w.logger }

// Steps returns a copy of the step list.
func (w *Workflow) Steps() []Step {
	out := make([]Step, len(w.steps))
	copy(out, w.steps)
	return out
}

// CurrentStep returns the current index and step. It panics when the
// workflow has no steps.
func (w *Workflow) CurrentStep() (int, Step) {
	return w.current, w.steps[w.current]
}

// VisibleSteps returns a copy of the visible step indices in order.
func (w *Workflow) VisibleSteps() []int {
	out := make([]int, len(w.visible))
	copy(out, w.visible)
	return out
}

// Data returns a copy of the workflow data.
func (w *Workflow) Data() Data { return w.data.Clone() }

// Get returns the data value for key.
func (w *Workflow) Get(key string) (any, bool) {
	v, ok := w.data[key]
	return v, ok
}

// Set stores a data value and recomputes visibility. It must only be called
// from the goroutine driving Prepare, never from a running work function.
func (w *Workflow) Set(key string, value any) {
	w.data[key] = value
	w.refreshVisible()
}

// ActiveAction returns the background action of the current step, or nil.
func (w *Workflow) ActiveAction() action.Action { return w.active }

// IsFirstStep reports whether no visible step precedes the current one.
func (w *Workflow) IsFirstStep() bool {
	_, ok := prevIn(w.visible, w.current)
	return !ok
}

// IsLastStep reports whether no visible step follows the current one.
func (w *Workflow) IsLastStep() bool {
	_, ok := nextIn(w.visible, w.current)
	return !ok
}

// ProgressPercentage returns the position of the current step within the
// visible steps as a rounded percentage.
func (w *Workflow) ProgressPercentage() int {
	if len(w.visible) == 0 {
		return 0
	}
	pos := 0
	for _, v := range w.visible {
		if v < w.current {
			pos++
		}
	}
	pct := int(math.Round(float64(pos+1) / float64(len(w.visible)) * 100))
	if pct > 100 {
		pct = 100
	}
	return pct
}
