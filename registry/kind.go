package registry

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/logging"
)

// AgentSpec is a declarative agent record.
type AgentSpec struct {
	ID          string
	Name        string
	Description string
	Protocol    string
	Timeout     time.Duration
	Details     core.Details
	// Kind selects the constructor of a local agent.
	Kind string
	Args util.Args
	// Keys names the credentials injected into Args before construction.
	Keys []string
}

// IsLocal reports whether the spec describes an in-process agent.
func (s AgentSpec) IsLocal() bool {
	return s.Protocol == "" || s.Protocol == core.ProtocolLocal
}

// Env is what constructors get besides the spec.
type Env struct {
	Registry     *Registry
	Logger       logging.Logger
	Dispatcher   core.Dispatcher
	Observer     agent.Observer
	MaxCallDepth int
}

// AgentOptions applies the identity and ambient settings of spec to
// agent.Options.
func (e Env) AgentOptions(spec AgentSpec) func(o *agent.Options) {
	return func(o *agent.Options) {
		o.DisplayName = spec.Name
		o.Description = spec.Description
		if spec.Timeout > 0 {
			o.Timeout = spec.Timeout
		}
		if e.Logger != nil {
			o.Logger = e.Logger
		}
		o.Observer = e.Observer
		o.Transport = e.Dispatcher
		if e.MaxCallDepth > 0 {
			o.MaxCallDepth = e.MaxCallDepth
		}
	}
}

// Constructor builds a local agent from its spec.
type Constructor func(ctx context.Context, spec AgentSpec, env Env) (core.Agent, error)

// RegisterKind binds kind to c, replacing any previous binding.
func (r *Registry) RegisterKind(kind string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = c
}

// Constructor returns the constructor registered for kind.
func (r *Registry) Constructor(kind string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownImplementation, kind)
	}
	return c, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build constructs the agent described by spec. Remote specs become
// transport proxies; local specs go through the constructor of their kind
// after the requested keys are injected into Args.
func (r *Registry) Build(ctx context.Context, spec AgentSpec, env Env) (core.Agent, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("agent without id")
	}
	if env.Registry == nil {
		env.Registry = r
	}
	if env.Logger == nil {
		env.Logger = r.logger
	}

	if !spec.IsLocal() {
		if env.Dispatcher == nil {
			return nil, fmt.Errorf("agent %q: %w: no dispatcher for %q", spec.ID, core.ErrUnknownProtocol, spec.Protocol)
		}
		if _, err := env.Dispatcher.Lookup(spec.Protocol); err != nil {
			return nil, fmt.Errorf("agent %q: %w", spec.ID, err)
		}
		if _, ok := spec.Details.String("url"); !ok && spec.Protocol != "mock" {
			return nil, fmt.Errorf("agent %q: protocol %q requires details.url", spec.ID, spec.Protocol)
		}
		return agent.NewRemote(spec.ID, spec.Protocol, spec.Details, env.Dispatcher, env.AgentOptions(spec)), nil
	}

	c, err := r.Constructor(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", spec.ID, err)
	}

	args := util.Args{}
	for k, v := range spec.Args {
		args[k] = v
	}
	for _, name := range spec.Keys {
		v, err := r.Key(name)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", spec.ID, err)
		}
		args[name] = v
	}
	spec.Args = args

	a, err := c(ctx, spec, env)
	if err != nil {
		return nil, fmt.Errorf("agent %q of kind %q: %w", spec.ID, spec.Kind, err)
	}
	r.logger.Debug("agent built", "agent", spec.ID, "kind", spec.Kind)
	return a, nil
}
