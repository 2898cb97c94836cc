package config

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the forge.toml config file.
	SourceFile ConfigSource = "file"
	// SourceWorkflowFile indicates a workflow loaded from a standalone file
	// matched by engine.workflow_files.
	SourceWorkflowFile ConfigSource = "workflow-file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "engine.lock_timeout"
	Path    string                  // path to the config file used (empty if none)
}

// CLIOverrides captures flag values that can override configuration.
// A nil pointer means "not overridden".
type CLIOverrides struct {
	LockTimeout   *string
	GraceDelay    *string
	PollInterval  *string
	WorkflowFiles *string
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Parameters:
//   - defaults: built-in default config (from NewDefaults())
//   - fileConfig: parsed config from forge.toml (nil if no file found)
//   - envFn: function to look up environment variables
//   - overrides: CLI flag values (nil fields mean "not set")
//
// Returns the fully-resolved config with source annotations.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: Start with defaults as the base.
	resolveEngineFromDefaults(rc, defaults)
	resolveWorkflowsFromDefaults(rc, defaults)

	// Layer 2: Merge file config on top (non-zero values override; maps merge keys).
	if fileConfig != nil {
		resolveEngineFromFile(rc, fileConfig)
		resolveWorkflowsFromFile(rc, fileConfig)
	}

	// Layer 3: Merge environment variables on top.
	resolveFromEnv(rc, envFn)

	// Layer 4: Merge CLI overrides on top.
	resolveFromCLI(rc, overrides)

	return rc
}

// --- Layer 1: Defaults ---

func resolveEngineFromDefaults(rc *ResolvedConfig, defaults *Config) {
	e := &rc.Config.Engine
	d := &defaults.Engine

	setString(&e.LockTimeout, d.LockTimeout, "engine.lock_timeout", SourceDefault, rc.Sources)
	setString(&e.GraceDelay, d.GraceDelay, "engine.grace_delay", SourceDefault, rc.Sources)
	setInt(&e.ConsoleLines, d.ConsoleLines, "engine.console_lines", SourceDefault, rc.Sources)
	setInt(&e.LogEntries, d.LogEntries, "engine.log_entries", SourceDefault, rc.Sources)
	setString(&e.PollInterval, d.PollInterval, "engine.poll_interval", SourceDefault, rc.Sources)
	setString(&e.WorkflowFiles, d.WorkflowFiles, "engine.workflow_files", SourceDefault, rc.Sources)
}

func resolveWorkflowsFromDefaults(rc *ResolvedConfig, defaults *Config) {
	rc.Config.Workflows = make(map[string]WorkflowConfig)
	for name, wf := range defaults.Workflows {
		rc.Config.Workflows[name] = copyWorkflowConfig(wf)
		rc.Sources["workflows."+name] = SourceDefault
	}
}

// --- Layer 2: File ---

func resolveEngineFromFile(rc *ResolvedConfig, file *Config) {
	e := &rc.Config.Engine
	f := &file.Engine

	mergeString(&e.LockTimeout, f.LockTimeout, "engine.lock_timeout", SourceFile, rc.Sources)
	mergeString(&e.GraceDelay, f.GraceDelay, "engine.grace_delay", SourceFile, rc.Sources)
	mergeInt(&e.ConsoleLines, f.ConsoleLines, "engine.console_lines", SourceFile, rc.Sources)
	mergeInt(&e.LogEntries, f.LogEntries, "engine.log_entries", SourceFile, rc.Sources)
	mergeString(&e.PollInterval, f.PollInterval, "engine.poll_interval", SourceFile, rc.Sources)
	mergeString(&e.WorkflowFiles, f.WorkflowFiles, "engine.workflow_files", SourceFile, rc.Sources)
}

func resolveWorkflowsFromFile(rc *ResolvedConfig, file *Config) {
	for name, wf := range file.Workflows {
		rc.Config.Workflows[name] = copyWorkflowConfig(wf)
		rc.Sources["workflows."+name] = SourceFile
	}
}

// --- Layer 3: Environment ---

// Environment variable mapping:
//
//	FORGE_LOCK_TIMEOUT    -> engine.lock_timeout
//	FORGE_GRACE_DELAY     -> engine.grace_delay
//	FORGE_POLL_INTERVAL   -> engine.poll_interval
//	FORGE_WORKFLOW_FILES  -> engine.workflow_files
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	e := &rc.Config.Engine

	for _, m := range []struct {
		env    string
		target *string
		path   string
	}{
		{"FORGE_LOCK_TIMEOUT", &e.LockTimeout, "engine.lock_timeout"},
		{"FORGE_GRACE_DELAY", &e.GraceDelay, "engine.grace_delay"},
		{"FORGE_POLL_INTERVAL", &e.PollInterval, "engine.poll_interval"},
		{"FORGE_WORKFLOW_FILES", &e.WorkflowFiles, "engine.workflow_files"},
	} {
		if val, ok := envFn(m.env); ok {
			*m.target = val
			rc.Sources[m.path] = SourceEnv
		}
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	e := &rc.Config.Engine

	if overrides.LockTimeout != nil {
		e.LockTimeout = *overrides.LockTimeout
		rc.Sources["engine.lock_timeout"] = SourceCLI
	}
	if overrides.GraceDelay != nil {
		e.GraceDelay = *overrides.GraceDelay
		rc.Sources["engine.grace_delay"] = SourceCLI
	}
	if overrides.PollInterval != nil {
		e.PollInterval = *overrides.PollInterval
		rc.Sources["engine.poll_interval"] = SourceCLI
	}
	if overrides.WorkflowFiles != nil {
		e.WorkflowFiles = *overrides.WorkflowFiles
		rc.Sources["engine.workflow_files"] = SourceCLI
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty (non-zero string).
// For file-layer merging, an empty string in the file means "not set in file",
// so it does not override the default.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

func setInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeInt overwrites the target only if value is non-zero.
func mergeInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != 0 {
		*target = value
		sources[path] = source
	}
}

// copyWorkflowConfig returns a deep copy of a WorkflowConfig.
func copyWorkflowConfig(src WorkflowConfig) WorkflowConfig {
	wf := WorkflowConfig{Description: src.Description}
	if src.Steps == nil {
		return wf
	}
	wf.Steps = make([]StepConfig, len(src.Steps))
	for i, s := range src.Steps {
		c := s
		if s.Fields != nil {
			c.Fields = make([]FieldConfig, len(s.Fields))
			for j, f := range s.Fields {
				c.Fields[j] = f
				if f.Options != nil {
					c.Fields[j].Options = append([]string(nil), f.Options...)
				}
			}
		}
		if s.Triggers != nil {
			c.Triggers = append([]TriggerConfig(nil), s.Triggers...)
		}
		wf.Steps[i] = c
	}
	return wf
}
