package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
)

// Built-in workflow names.
const (
	// WorkflowBatch collects a list of items, processes them one by one in
	// the background and reports the result.
	WorkflowBatch = "batch"
)

// Batch field names and defaults.
const (
	batchItemsField = "items"
	batchDelayField = "delay"

	defaultBatchDelay = 200 * time.Millisecond

	// batchStatusLine is the status line ID the batch action updates in place.
	batchStatusLine = "batch-item"
)

// RegisterBuiltins adds the built-in workflows to r.
func RegisterBuiltins(r *Registry) {
	r.Register(WorkflowBatch, "Process a list of items in the background.", NewBatch)
}

// NewBatch builds the batch workflow: an input step, a background step that
// processes every item and a final step that may redo the processing.
func NewBatch(reg *action.Registry, opts ...Option) (*Workflow, error) {
	opts = append([]Option{WithDescription("Process a list of items in the background.")}, opts...)
	wf := New(WorkflowBatch, reg, opts...)

	wf.AddStep(NewStep("input", batchInputDisplay,
		WithTitle("Items"),
		WithAction(validateBatchInput),
		WithNote("fields: items, delay"),
	))
	wf.AddStep(NewStep("process", batchProcessDisplay,
		WithTitle("Processing"),
		WithBackgroundAction(startBatch),
		WithNote("processes each item in the background"),
	))
	wf.AddStep(NewStep("done", batchDoneDisplay,
		WithTitle("Done"),
		WithRedo(),
	))
	return wf, nil
}

func batchInputDisplay(r Renderer, data Data) error {
	r.AddText("Enter the items to process, separated by commas.")
	r.AddField(Field{
		Name:        batchItemsField,
		Label:       "Items",
		Value:       data.String(batchItemsField),
		Placeholder: "alpha, beta, gamma",
	})
	delay := data.String(batchDelayField)
	if delay == "" {
		delay = defaultBatchDelay.String()
	}
	r.AddField(Field{
		Name:  batchDelayField,
		Label: "Delay per item",
		Value: delay,
	})
	return nil
}

func validateBatchInput(_ context.Context, _ *Workflow, form Data) error {
	if len(splitItems(form.String(batchItemsField))) == 0 {
		return Invalid(batchItemsField, "enter at least one item")
	}
	if raw := form.String(batchDelayField); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return Invalid(batchDelayField, fmt.Sprintf("%q is not a duration", raw))
		}
	}
	return nil
}

func batchProcessDisplay(r Renderer, data Data) error {
	items := splitItems(data.String(batchItemsField))
	r.AddText(fmt.Sprintf("%d item(s) will be processed: %s", len(items), strings.Join(items, ", ")))
	return nil
}

// startBatch snapshots the items from the workflow data. The work function
// must not read the workflow, which belongs to the request goroutine.
func startBatch(_ context.Context, wf *Workflow, _ Data) (*action.BackgroundAction, error) {
	data := wf.Data()
	items := splitItems(data.String(batchItemsField))
	delay := defaultBatchDelay
	if raw := data.String(batchDelayField); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			delay = d
		}
	}

	status := wf.Status()
	return action.New(wf.Registry(), func(ctx context.Context, a *action.BackgroundAction) error {
		for i, item := range items {
			a.ConsoleWrite(fmt.Sprintf("processing %s (%d/%d)", item, i+1, len(items)), log.InfoLevel)
			status.EmitStatus(WorkflowBatch, "processing "+item, i*100/len(items),
				fmt.Sprintf("%d/%d", i+1, len(items)), batchStatusLine)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			a.SetProgress((i + 1) * 100 / len(items))
		}
		done := fmt.Sprintf("processed %d item(s)", len(items))
		a.LogWrite(done, log.InfoLevel)
		status.EmitStatus(WorkflowBatch, done, 100, "", batchStatusLine)
		return nil
	}, wf.ActionOptions()...)
}

func batchDoneDisplay(r Renderer, data Data) error {
	items := splitItems(data.String(batchItemsField))
	r.AddText(fmt.Sprintf("Processed %d item(s).", len(items)))
	for _, item := range items {
		r.AddText("  - " + item)
	}
	return nil
}

// splitItems splits a comma or newline separated list, dropping blanks.
func splitItems(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}
	return items
}
