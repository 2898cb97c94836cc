package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/AbdelazizMoustafa10m/forge/internal/config"
)

// Issue code constants classify each ValidationIssue by its category. Codes
// are stable strings so callers can switch on them.
const (
	// IssueNoSteps is reported for a workflow without steps.
	IssueNoSteps = "NO_STEPS"

	// IssueEmptyStepName is reported when a step has an empty name.
	IssueEmptyStepName = "EMPTY_STEP_NAME"

	// IssueDuplicateStep is reported when two steps share a name.
	IssueDuplicateStep = "DUPLICATE_STEP_NAME"

	// IssueInvalidField is reported for a field without a usable name or a
	// field declared twice in one step.
	IssueInvalidField = "INVALID_FIELD"

	// IssueReservedField is reported when a field would shadow one of the
	// hidden control fields the engine renders itself.
	IssueReservedField = "RESERVED_FIELD"

	// IssueInvalidCondition is reported when visible_if does not parse.
	IssueInvalidCondition = "INVALID_CONDITION"

	// IssueUnknownField is reported when visible_if or a ${field} reference
	// names a field no step declares. The value may still arrive through
	// --set, so this is a warning.
	IssueUnknownField = "UNKNOWN_FIELD"

	// IssueInvalidCommand is reported when a non-shell command cannot be
	// split into arguments.
	IssueInvalidCommand = "INVALID_COMMAND"

	// IssueEmptyTrigger is reported for a trigger with an empty match, which
	// would answer every line.
	IssueEmptyTrigger = "EMPTY_TRIGGER"

	// IssueTriggerWithoutCommand is reported when triggers are set on a step
	// that runs nothing. They are ignored.
	IssueTriggerWithoutCommand = "TRIGGER_WITHOUT_COMMAND"

	// IssueRedoOnFirstStep is reported when the first step allows redo; there
	// is no earlier step to redo, so the button is always rejected.
	IssueRedoOnFirstStep = "REDO_ON_FIRST_STEP"

	// IssueHiddenFirstStep is reported when the first step is conditional.
	// A workflow whose steps are all hidden cannot be entered.
	IssueHiddenFirstStep = "CONDITIONAL_FIRST_STEP"
)

// placeholderRe matches ${name} and $name references expanded from workflow
// data in text, command and dir. An escaped $$ matches with empty groups.
var placeholderRe = regexp.MustCompile(`\$\$|\$\{([^}]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ValidationIssue describes a single problem found in a workflow
// configuration. Issues with a non-empty Step are tied to that step.
type ValidationIssue struct {
	// Code is one of the Issue* constants.
	Code string `json:"code"`

	// Step is the name of the step involved, or "" for workflow-level issues.
	Step string `json:"step,omitempty"`

	// Message is a human-readable description of the problem.
	Message string `json:"message"`
}

// ValidationResult holds the outcome of validating one workflow
// configuration. Errors prevent the workflow from being built; warnings do
// not.
type ValidationResult struct {
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// IsValid reports whether the configuration has no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// String returns a multi-line summary of all issues:
//
//	Errors (N):
//	  [CODE] step "name": message
//	Warnings (N):
//	  [CODE] message
func (r *ValidationResult) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Errors (%d):\n", len(r.Errors))
	for _, issue := range r.Errors {
		writeIssue(&b, issue)
	}

	fmt.Fprintf(&b, "Warnings (%d):\n", len(r.Warnings))
	for _, issue := range r.Warnings {
		writeIssue(&b, issue)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, issue ValidationIssue) {
	if issue.Step != "" {
		fmt.Fprintf(b, "  [%s] step %q: %s\n", issue.Code, issue.Step, issue.Message)
		return
	}
	fmt.Fprintf(b, "  [%s] %s\n", issue.Code, issue.Message)
}

func (r *ValidationResult) errorf(code, step, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationIssue{Code: code, Step: step, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warnf(code, step, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationIssue{Code: code, Step: step, Message: fmt.Sprintf(format, args...)})
}

// ValidateConfig checks a declarative workflow before FromConfig builds it.
// It always returns a non-nil result.
func ValidateConfig(cfg config.WorkflowConfig) *ValidationResult {
	result := &ValidationResult{}

	if len(cfg.Steps) == 0 {
		result.errorf(IssueNoSteps, "", "workflow has no steps")
		return result
	}

	// Names and fields first; references are checked against every field
	// declared anywhere in the workflow.
	seen := make(map[string]bool, len(cfg.Steps))
	declared := make(map[string]bool)
	for i, sc := range cfg.Steps {
		if strings.TrimSpace(sc.Name) == "" {
			result.errorf(IssueEmptyStepName, "", "step at index %d has an empty name", i)
		} else if seen[sc.Name] {
			result.errorf(IssueDuplicateStep, sc.Name, "step name %q appears more than once", sc.Name)
		}
		seen[sc.Name] = true

		inStep := make(map[string]bool, len(sc.Fields))
		for _, f := range sc.Fields {
			switch {
			case !fieldNameRe.MatchString(f.Name):
				result.errorf(IssueInvalidField, sc.Name, "invalid field name %q", f.Name)
				continue
			case isControlKey(f.Name):
				result.errorf(IssueReservedField, sc.Name, "field name %q is reserved", f.Name)
				continue
			case inStep[f.Name]:
				result.errorf(IssueInvalidField, sc.Name, "field %q declared twice", f.Name)
				continue
			}
			inStep[f.Name] = true
			declared[f.Name] = true
		}
	}

	for i, sc := range cfg.Steps {
		if sc.VisibleIf != "" {
			cond, err := ParseCondition(sc.VisibleIf)
			switch {
			case err != nil:
				result.errorf(IssueInvalidCondition, sc.Name, "visible_if: %v", err)
			case !declared[cond.Field]:
				result.warnf(IssueUnknownField, sc.Name, "visible_if references undeclared field %q", cond.Field)
			}
			if i == 0 {
				result.warnf(IssueHiddenFirstStep, sc.Name, "first step is conditional")
			}
		}

		for _, ref := range placeholders(sc.Text, sc.Command, sc.Dir) {
			if !declared[ref] {
				result.warnf(IssueUnknownField, sc.Name, "${%s} references undeclared field", ref)
			}
		}

		if sc.Command != "" && !sc.Shell {
			if _, err := shellwords.Parse(sc.Command); err != nil {
				result.errorf(IssueInvalidCommand, sc.Name, "command: %v", err)
			}
		}

		if len(sc.Triggers) > 0 && sc.Command == "" {
			result.warnf(IssueTriggerWithoutCommand, sc.Name, "triggers are ignored without a command")
		}
		for j, t := range sc.Triggers {
			if t.Match == "" {
				result.errorf(IssueEmptyTrigger, sc.Name, "trigger %d has an empty match", j)
			}
		}

		if i == 0 && sc.AllowRedo {
			result.warnf(IssueRedoOnFirstStep, sc.Name, "allow_redo has no effect on the first step")
		}
	}

	return result
}

// ValidateConfigs validates every workflow in cfgs, keyed by workflow name.
func ValidateConfigs(cfgs map[string]config.WorkflowConfig) map[string]*ValidationResult {
	results := make(map[string]*ValidationResult, len(cfgs))
	for name, cfg := range cfgs {
		results[name] = ValidateConfig(cfg)
	}
	return results
}

// placeholders returns the distinct field names referenced in texts, in
// order of first appearance.
func placeholders(texts ...string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
			ref := m[1]
			if ref == "" {
				ref = m[2]
			}
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
