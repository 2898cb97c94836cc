// Package config loads forge.toml and workflow files and resolves engine
// settings from defaults, the file and FORGE_* environment variables.
package config

import "time"

// Config is the top-level configuration structure mapping to forge.toml.
type Config struct {
	Engine    EngineConfig              `toml:"engine"`
	Workflows map[string]WorkflowConfig `toml:"workflows"`
}

// EngineConfig maps to the [engine] section in forge.toml. Durations are
// kept as strings and parsed with time.ParseDuration; Validate reports the
// ones that do not parse.
type EngineConfig struct {
	LockTimeout   string `toml:"lock_timeout"`
	GraceDelay    string `toml:"grace_delay"`
	ConsoleLines  int    `toml:"console_lines"`
	LogEntries    int    `toml:"log_entries"`
	PollInterval  string `toml:"poll_interval"`
	WorkflowFiles string `toml:"workflow_files"`
}

// LockTimeoutDuration returns lock_timeout, or DefaultLockTimeout when it is
// unset or invalid.
func (e EngineConfig) LockTimeoutDuration() time.Duration {
	return parseDurationOr(e.LockTimeout, DefaultLockTimeout)
}

// GraceDelayDuration returns grace_delay, or DefaultGraceDelay when it is
// unset or invalid.
func (e EngineConfig) GraceDelayDuration() time.Duration {
	return parseDurationOr(e.GraceDelay, DefaultGraceDelay)
}

// PollIntervalDuration returns poll_interval, or DefaultPollInterval when it
// is unset or invalid.
func (e EngineConfig) PollIntervalDuration() time.Duration {
	return parseDurationOr(e.PollInterval, DefaultPollInterval)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// WorkflowConfig maps to a [workflows.<name>] section in forge.toml or to a
// whole workflow file.
type WorkflowConfig struct {
	Description string       `toml:"description"`
	Steps       []StepConfig `toml:"steps"`
}

// StepConfig maps to one [[workflows.<name>.steps]] entry.
type StepConfig struct {
	Name  string `toml:"name"`
	Title string `toml:"title"`
	Text  string `toml:"text"`

	Fields []FieldConfig `toml:"fields"`

	// Command makes the step a background step running the command line.
	// ${field} references are expanded from workflow data.
	Command string `toml:"command"`
	Shell   bool   `toml:"shell"`
	Dir     string `toml:"dir"`

	// Background keeps the finished action registered so its console stays
	// inspectable; otherwise it is removed after the grace delay.
	Background bool `toml:"background"`

	// VisibleIf is a condition on workflow data: "field", "!field",
	// "field=value" or "field!=value".
	VisibleIf string `toml:"visible_if"`
	AllowRedo bool   `toml:"allow_redo"`
	Skippable bool   `toml:"skippable"`

	Triggers []TriggerConfig `toml:"triggers"`
}

// FieldConfig maps to a [[...steps.fields]] input definition.
type FieldConfig struct {
	Name        string   `toml:"name"`
	Label       string   `toml:"label"`
	Default     string   `toml:"default"`
	Placeholder string   `toml:"placeholder"`
	Options     []string `toml:"options"`
}

// TriggerConfig maps to a [[...steps.triggers]] auto-response.
type TriggerConfig struct {
	Match    string `toml:"match"`
	Response string `toml:"response"`
}
