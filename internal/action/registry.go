package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

// DefaultLockTimeout bounds every wait for the registry lock.
const DefaultLockTimeout = 2 * time.Second

// ErrLockTimeout is returned when the registry lock could not be acquired
// within the configured bound.
var ErrLockTimeout = errors.New("registry lock timeout")

// Stats summarises the registry contents.
type Stats struct {
	Total       int `json:"total"`
	Running     int `json:"running"`
	WithProcess int `json:"with_process"`
	WithError   int `json:"with_error"`
	UniqueNames int `json:"unique_names"`
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRegistryLogger attaches a logger. When nil the registry logs through
// logging.New("registry").
func WithRegistryLogger(logger *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// Registry is the table of live actions. It is shared by every action
// goroutine, every process reader and every UI poller, so all access goes
// through a lock acquired with a deadline: a slow holder produces a logged
// ErrLockTimeout instead of stalling every caller.
//
// Mutating calls return ErrLockTimeout; read-only queries log it and return
// empty results.
type Registry struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  *log.Logger
	actions []Action
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sem:     semaphore.NewWeighted(1),
		timeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.New("registry")
	}
	return r
}

// lock acquires the registry lock or fails after r.timeout.
func (r *Registry) lock(op string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.logger.Error("registry lock timeout", "op", op, "timeout", r.timeout)
		return fmt.Errorf("registry %s: %w after %s", op, ErrLockTimeout, r.timeout)
	}
	return nil
}

func (r *Registry) unlock() { r.sem.Release(1) }

// indexOf must be called with the lock held.
func (r *Registry) indexOf(id string) int {
	for i, a := range r.actions {
		if a.ID() == id {
			return i
		}
	}
	return -1
}

// Add registers a. Adding an action that is already present is a no-op.
func (r *Registry) Add(a Action) error {
	if err := r.lock("add"); err != nil {
		return err
	}
	defer r.unlock()

	if r.indexOf(a.ID()) >= 0 {
		return nil
	}
	r.actions = append(r.actions, a)
	r.logger.Debug("action registered", "action", a.Name(), "id", a.ID(), "total", len(r.actions))
	return nil
}

// Remove kills a's process, closes its remote side and drops it from the
// table. Failures from the close hooks are logged and do not prevent the
// removal; only a lock timeout is returned.
func (r *Registry) Remove(a Action) error {
	if err := a.ProcessClose(); err != nil {
		r.logger.Warn("closing process during removal", "action", a.Name(), "error", err)
	}
	if err := a.RemoteClose(); err != nil {
		r.logger.Warn("closing remote session during removal", "action", a.Name(), "error", err)
	}

	if err := r.lock("remove"); err != nil {
		return err
	}
	defer r.unlock()

	i := r.indexOf(a.ID())
	if i < 0 {
		return nil
	}
	r.actions = append(r.actions[:i], r.actions[i+1:]...)
	r.logger.Debug("action removed", "action", a.Name(), "id", a.ID(), "total", len(r.actions))
	return nil
}

// All returns a copy of the table.
func (r *Registry) All() []Action {
	if err := r.lock("all"); err != nil {
		return nil
	}
	defer r.unlock()

	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// FindByID returns the action with the given instance identity.
func (r *Registry) FindByID(id string) (Action, bool) {
	if id == "" {
		return nil, false
	}
	if err := r.lock("find"); err != nil {
		return nil, false
	}
	defer r.unlock()

	if i := r.indexOf(id); i >= 0 {
		return r.actions[i], true
	}
	return nil, false
}

// FindByName returns the first registered action with the given name.
func (r *Registry) FindByName(name string) (Action, bool) {
	if err := r.lock("find"); err != nil {
		return nil, false
	}
	defer r.unlock()

	for _, a := range r.actions {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// FindAllByName returns every registered action with the given name, in
// registration order.
func (r *Registry) FindAllByName(name string) []Action {
	if err := r.lock("find"); err != nil {
		return nil
	}
	defer r.unlock()

	var out []Action
	for _, a := range r.actions {
		if a.Name() == name {
			out = append(out, a)
		}
	}
	return out
}

// Stats computes summary counts under a single lock acquisition. It returns
// the zero Stats when the lock times out.
func (r *Registry) Stats() Stats {
	if err := r.lock("stats"); err != nil {
		return Stats{}
	}
	defer r.unlock()

	s := Stats{Total: len(r.actions)}
	names := make(map[string]struct{}, len(r.actions))
	for _, a := range r.actions {
		if a.IsRunning() {
			s.Running++
		}
		if a.HasProcess() {
			s.WithProcess++
		}
		if a.Err() != "" {
			s.WithError++
		}
		names[a.Name()] = struct{}{}
	}
	s.UniqueNames = len(names)
	return s
}

// KillAll removes every registered action. The table is snapshotted first
// and each removal takes the lock on its own. All removal errors are
// returned joined.
func (r *Registry) KillAll() error {
	if err := r.lock("kill-all"); err != nil {
		return err
	}
	snapshot := make([]Action, len(r.actions))
	copy(snapshot, r.actions)
	r.unlock()

	var errs []error
	for _, a := range snapshot {
		if err := r.Remove(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered actions, or 0 on lock timeout.
func (r *Registry) Len() int {
	if err := r.lock("len"); err != nil {
		return 0
	}
	defer r.unlock()
	return len(r.actions)
}
