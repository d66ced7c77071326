// Package registry holds the public agent directory, the credentials agents
// are built with and the table of agent kinds that can be materialized.
//
// A Registry is an explicit object: construct one per process (or per test),
// populate it at startup and pass it by reference to the HTTP server and
// command line front-end.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
}

// Registry is the public directory plus the materialization tables.
//
// Concurrency: protected by RWMutex. Registration happens at startup,
// lookups at request time.
type Registry struct {
	mu     sync.RWMutex
	public map[string]core.Agent
	keys   map[string]string
	kinds  map[string]Constructor
	logger logging.Logger
}

var _ core.Resolver = (*Registry)(nil)

// New creates an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		public: map[string]core.Agent{},
		keys:   map[string]string{},
		kinds:  map[string]Constructor{},
		logger: opts.Logger,
	}
}

// Logger returns the registry logger.
func (r *Registry) Logger() logging.Logger { return r.logger }

// Register adds a to the public directory.
func (r *Registry) Register(a core.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.public[a.ID()]; exists {
		return fmt.Errorf("%w: %q", core.ErrDuplicateAgent, a.ID())
	}
	r.public[a.ID()] = a
	r.logger.Debug("agent registered", "agent", a.ID(), "protocol", a.Protocol())
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(agents ...core.Agent) {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the public agent with the given identifier.
func (r *Registry) Lookup(id string) (core.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.public[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAgent, id)
	}
	return a, nil
}

// Public returns a snapshot of the public directory.
func (r *Registry) Public() core.Directory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return core.Directory(r.public).Clone()
}

// SinglePublic returns the only public agent. It fails unless exactly one
// agent is registered.
func (r *Registry) SinglePublic() (core.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.public) != 1 {
		return nil, fmt.Errorf("expected exactly one public agent, found %d", len(r.public))
	}
	for _, a := range r.public {
		return a, nil
	}
	return nil, nil
}

// Reset clears the public directory and the keys. Registered kinds are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public = map[string]core.Agent{}
	r.keys = map[string]string{}
}

// SetKey stores a credential.
func (r *Registry) SetKey(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[name] = value
}

// SetKeys stores several credentials.
func (r *Registry) SetKeys(keys map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range keys {
		r.keys[k] = v
	}
}

// Key returns a credential or ErrMissingKey.
func (r *Registry) Key(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.keys[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %q", core.ErrMissingKey, name)
	}
	return v, nil
}

// KeyNames returns the names of the stored credentials in sorted order.
func (r *Registry) KeyNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.keys))
	for k := range r.keys {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
