package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/config"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// engine is the per-invocation wiring of the resolved configuration: the
// action registry every background action lands in and the catalog of
// runnable workflows.
type engine struct {
	cfg       config.EngineConfig
	actions   *action.Registry
	workflows *workflow.Registry
	// configs holds the declarative definitions by name, for validation
	// reports next to the catalog.
	configs map[string]config.WorkflowConfig
	logger  *log.Logger
}

// newEngine builds an engine from rc. Built-in workflows win over configured
// ones with the same name; the shadowed definition is reported and skipped.
func newEngine(rc *config.ResolvedConfig) *engine {
	logger := logging.New("engine")
	e := &engine{
		cfg: rc.Config.Engine,
		actions: action.NewRegistry(
			action.WithLockTimeout(rc.Config.Engine.LockTimeoutDuration()),
			action.WithRegistryLogger(logging.New("registry")),
		),
		workflows: workflow.NewRegistry(),
		configs:   rc.Config.Workflows,
		logger:    logger,
	}
	workflow.RegisterBuiltins(e.workflows)
	for _, name := range sortedKeys(rc.Config.Workflows) {
		if err := e.workflows.AddConfig(name, rc.Config.Workflows[name]); err != nil {
			logger.Warn("configured workflow skipped", "workflow", name, "error", err)
		}
	}
	return e
}

// actionOptions are the options every action started by this engine gets.
func (e *engine) actionOptions() []action.Option {
	return []action.Option{
		action.WithGraceDelay(e.cfg.GraceDelayDuration()),
		action.WithConsoleCapacity(e.cfg.ConsoleLines),
		action.WithLogCapacity(e.cfg.LogEntries),
		action.WithLogger(logging.New("action")),
	}
}

// validation returns the validation result of a configured workflow, or nil
// for built-ins.
func (e *engine) validation(entry workflow.Entry) *workflow.ValidationResult {
	if entry.Source != workflow.SourceConfig {
		return nil
	}
	cfg, ok := e.configs[entry.Name]
	if !ok {
		return nil
	}
	return workflow.ValidateConfig(cfg)
}

// shutdown stops whatever is still running and removes every action from
// the registry. Failures are logged and returned joined.
func (e *engine) shutdown() error {
	stats := e.actions.Stats()
	e.logger.Debug("shutting down",
		"actions", stats.Total,
		"running", stats.Running,
		"with_process", stats.WithProcess,
		"with_error", stats.WithError,
	)

	var errs []error
	for _, a := range e.actions.All() {
		ba, ok := a.(*action.BackgroundAction)
		if !ok || !ba.IsRunning() {
			continue
		}
		if err := ba.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping %q: %w", ba.Name(), err))
		}
	}
	if err := e.actions.KillAll(); err != nil {
		errs = append(errs, err)
	}

	err := errors.Join(errs...)
	if err != nil {
		e.logger.Warn("shutdown incomplete", "error", err)
	}
	return err
}
