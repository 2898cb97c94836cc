package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "engine.lock_timeout"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// maxRingSize bounds console_lines and log_entries; larger buffers are
// allowed but reported because every poll copies the whole ring.
const maxRingSize = 100_000

// Validate checks the configuration for correctness and completeness.
// Workflow step structure is checked by workflow.ValidateConfig; this only
// covers the engine section and unknown keys.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateEngine(vr, &cfg.Engine)
	validateWorkflowNames(vr, cfg.Workflows)
	validateUnknownKeys(vr, meta)

	return vr
}

// validateEngine checks the [engine] section for errors and warnings.
func validateEngine(vr *ValidationResult, e *EngineConfig) {
	validateDuration(vr, "engine.lock_timeout", e.LockTimeout, false)
	validateDuration(vr, "engine.grace_delay", e.GraceDelay, true)
	validateDuration(vr, "engine.poll_interval", e.PollInterval, false)

	for _, c := range []struct {
		field string
		value int
	}{
		{"engine.console_lines", e.ConsoleLines},
		{"engine.log_entries", e.LogEntries},
	} {
		switch {
		case c.value < 0:
			addError(vr, c.field, fmt.Sprintf("must not be negative, got %d", c.value))
		case c.value > maxRingSize:
			addWarning(vr, c.field, fmt.Sprintf("%d entries is unusually large", c.value))
		}
	}

	if e.WorkflowFiles != "" && !doublestar.ValidatePattern(e.WorkflowFiles) {
		addError(vr, "engine.workflow_files", fmt.Sprintf("invalid glob pattern %q", e.WorkflowFiles))
	}
}

// validateDuration reports values that do not parse. Zero is only accepted
// when allowZero is set; empty means "use the default".
func validateDuration(vr *ValidationResult, field, value string, allowZero bool) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		addError(vr, field, fmt.Sprintf("invalid duration %q: %v", value, err))
		return
	}
	if d < 0 || (d == 0 && !allowZero) {
		addError(vr, field, fmt.Sprintf("must be positive, got %q", value))
	}
}

// validateWorkflowNames checks the [workflows.*] table keys.
func validateWorkflowNames(vr *ValidationResult, workflows map[string]WorkflowConfig) {
	for name := range workflows {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " /\t") {
			addError(vr, "workflows."+name, "workflow names must be non-empty and contain no spaces or slashes")
		}
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
