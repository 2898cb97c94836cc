package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Hidden control fields the workflow adds to every rendered step and reads
// back from the submission.
const (
	// FieldCurrentStep carries the absolute index of the rendered step.
	FieldCurrentStep = "current_step"

	// FieldState carries the encoded workflow data (see EncodeState).
	FieldState = "workflow_state"

	// FieldAction carries the instance ID of the active background action so
	// it can be re-attached without matching on names.
	FieldAction = "workflow_action"
)

// Intent marker keys. A submission carries at most one of them; the value is
// ignored except for KeyRedo, whose value is the target step index.
const (
	KeyNext     = "workflow_next"
	KeyPrev     = "workflow_prev"
	KeySkip     = "workflow_skip"
	KeyRedoLast = "workflow_redo_last"
	KeyRedo     = "workflow_redo"
)

// threadFlagPrefix prefixes the per-step data keys that mark "a background
// action was started for this step and its completion was not yet
// acknowledged".
const threadFlagPrefix = "_thread_on_step_"

// ThreadFlagKey returns the data key of the thread flag for step index.
func ThreadFlagKey(index int) string {
	return fmt.Sprintf("%s%d", threadFlagPrefix, index)
}

// isControlKey reports whether a submitted key is reserved and must not be
// persisted into workflow data.
func isControlKey(key string) bool {
	switch key {
	case FieldCurrentStep, FieldState, FieldAction,
		KeyNext, KeyPrev, KeySkip, KeyRedoLast, KeyRedo:
		return true
	}
	return strings.HasPrefix(key, threadFlagPrefix)
}

// Intent is the navigation request carried by a submission.
type Intent int

const (
	// IntentNone re-renders the current step without a transition.
	IntentNone Intent = iota
	IntentNext
	IntentPrev
	IntentSkip
	IntentRedoLast
	IntentRedo
)

// String returns the intent's marker key, or "none".
func (i Intent) String() string {
	switch i {
	case IntentNext:
		return KeyNext
	case IntentPrev:
		return KeyPrev
	case IntentSkip:
		return KeySkip
	case IntentRedoLast:
		return KeyRedoLast
	case IntentRedo:
		return KeyRedo
	default:
		return "none"
	}
}

// Event type constants identify the lifecycle milestone of an Event.
const (
	// WEStepEntered is emitted when the current step changes.
	WEStepEntered = "step_entered"

	// WEStepFailed is emitted when a display, action or skip callback fails.
	WEStepFailed = "step_failed"

	// WEActionStarted is emitted when a background action is started for a
	// step.
	WEActionStarted = "action_started"

	// WEActionFinished is emitted when a finished background action is
	// acknowledged and its thread flag cleared.
	WEActionFinished = "action_finished"

	// WERedo is emitted for both redo intents.
	WERedo = "redo"

	// WERejected is emitted when an intent is rejected without a state
	// change (invalid redo target, redo on a step that does not allow it).
	WERejected = "rejected"

	// WEWorkflowCompleted is emitted when NEXT is submitted on the last
	// visible step.
	WEWorkflowCompleted = "workflow_completed"
)

// Event is a structured message emitted by a Workflow. Events are sent over
// a channel for consumers such as status panels and audit logs.
type Event struct {
	Type      string    `json:"type"`
	Workflow  string    `json:"workflow"`
	Step      string    `json:"step"`
	Index     int       `json:"index"`
	ActionID  string    `json:"action_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}
