package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/config"
)

var (
	// ErrWorkflowNotFound is returned by Registry.Get for an unknown name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDuplicateWorkflow is returned by Registry.Add when the name is
	// already taken.
	ErrDuplicateWorkflow = errors.New("workflow already registered")
)

// Source values recorded on registry entries.
const (
	SourceBuiltin = "builtin"
	SourceConfig  = "config"
)

// Factory builds a fresh instance of a workflow. Every instance registers
// its background actions in reg.
type Factory func(reg *action.Registry, opts ...Option) (*Workflow, error)

// Entry describes one registered workflow.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`

	factory Factory
}

// Build calls the entry's factory.
func (e Entry) Build(reg *action.Registry, opts ...Option) (*Workflow, error) {
	return e.factory(reg, opts...)
}

// Registry maps workflow names to factories. Registration happens at
// startup before any lookup, so no mutex is needed.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add registers factory under name. It returns ErrDuplicateWorkflow when
// the name is taken.
func (r *Registry) Add(name, description, source string, factory Factory) error {
	if name == "" {
		return errors.New("workflow: empty name")
	}
	if factory == nil {
		return fmt.Errorf("workflow %q: nil factory", name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("workflow %q: %w", name, ErrDuplicateWorkflow)
	}
	r.entries[name] = Entry{Name: name, Description: description, Source: source, factory: factory}
	return nil
}

// Register is Add for built-in workflows. It panics on any error since a
// clash between built-ins is a programming error caught at startup.
func (r *Registry) Register(name, description string, factory Factory) {
	if err := r.Add(name, description, SourceBuiltin, factory); err != nil {
		panic(fmt.Sprintf("workflow: Register: %v", err))
	}
}

// AddConfig registers a declarative workflow. The configuration is
// validated on every build, so an invalid one is still listed.
func (r *Registry) AddConfig(name string, cfg config.WorkflowConfig) error {
	return r.Add(name, cfg.Description, SourceConfig, func(reg *action.Registry, opts ...Option) (*Workflow, error) {
		return FromConfig(name, cfg, reg, opts...)
	})
}

// Get returns the entry registered under name, or ErrWorkflowNotFound.
func (r *Registry) Get(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("workflow %q: %w", name, ErrWorkflowNotFound)
	}
	return e, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// List returns all entries sorted by name.
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build looks up name and builds a fresh instance.
func (r *Registry) Build(name string, reg *action.Registry, opts ...Option) (*Workflow, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Build(reg, opts...)
}
