package config

import "time"

// Engine defaults. They mirror the package defaults of internal/action and
// internal/ringlog so an empty forge.toml behaves like no forge.toml.
const (
	DefaultLockTimeout   = 2 * time.Second
	DefaultGraceDelay    = 500 * time.Millisecond
	DefaultPollInterval  = 200 * time.Millisecond
	DefaultConsoleLines  = 1000
	DefaultLogEntries    = 500
	DefaultWorkflowFiles = "workflows/**/*.toml"
)

// NewDefaults returns a Config populated with all default values.
func NewDefaults() *Config {
	return &Config{
		Engine: EngineConfig{
			LockTimeout:   DefaultLockTimeout.String(),
			GraceDelay:    DefaultGraceDelay.String(),
			ConsoleLines:  DefaultConsoleLines,
			LogEntries:    DefaultLogEntries,
			PollInterval:  DefaultPollInterval.String(),
			WorkflowFiles: DefaultWorkflowFiles,
		},
		Workflows: map[string]WorkflowConfig{},
	}
}
