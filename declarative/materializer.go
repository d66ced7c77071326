package declarative

import (
	"context"
	"fmt"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/registry"
)

// MaterializerOptions configures a Materializer.
type MaterializerOptions struct {
	Logger       logging.Logger
	Dispatcher   core.Dispatcher
	Observer     agent.Observer
	MaxCallDepth int
}

// Materializer builds the agents of a configuration directory into a registry.
type Materializer struct {
	reg *registry.Registry
	env registry.Env
}

type preparer interface {
	Prepare(ctx context.Context) error
}

// NewMaterializer creates a Materializer that builds agents with the kinds
// and keys of reg and registers the public agents there.
func NewMaterializer(reg *registry.Registry, optFns ...func(o *MaterializerOptions)) *Materializer {
	opts := MaterializerOptions{Logger: reg.Logger(), MaxCallDepth: core.DefaultMaxCallDepth}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Materializer{
		reg: reg,
		env: registry.Env{
			Registry:     reg,
			Logger:       opts.Logger,
			Dispatcher:   opts.Dispatcher,
			Observer:     opts.Observer,
			MaxCallDepth: opts.MaxCallDepth,
		},
	}
}

// MaterializePublic builds every agent reachable from the public file of
// dir and registers the public ones.
//
// Phase one constructs each agent once; an identifier referenced by several
// parents is shared. Phase two wires every agent's connected directory from
// its child file. The wired graph must be acyclic.
func (m *Materializer) MaterializePublic(ctx context.Context, dir string) ([]core.Agent, error) {
	publicPath, ok, err := findFile(dir, PublicFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s.yaml, %s.yml or %s.json in %s", PublicFile, PublicFile, PublicFile, dir)
	}
	public, err := LoadFile(publicPath)
	if err != nil {
		return nil, err
	}

	built := map[string]core.Agent{}
	children := map[string][]string{}
	queue := append([]registry.AgentSpec(nil), public...)

	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]
		if _, done := built[spec.ID]; done {
			continue
		}

		a, err := m.reg.Build(ctx, spec, m.env)
		if err != nil {
			return nil, err
		}
		built[spec.ID] = a

		childPath, ok, err := findFile(dir, spec.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		childSpecs, err := LoadFile(childPath)
		if err != nil {
			return nil, err
		}
		for _, c := range childSpecs {
			children[spec.ID] = append(children[spec.ID], c.ID)
			queue = append(queue, c)
		}
	}

	for id, ids := range children {
		dir := make(core.Directory, len(ids))
		for _, cid := range ids {
			dir[cid] = built[cid]
		}
		built[id].SetConnected(dir)
	}

	roots := make(core.Directory, len(public))
	for _, spec := range public {
		roots[spec.ID] = built[spec.ID]
	}
	if err := registry.DetectCycles(roots); err != nil {
		return nil, err
	}

	for _, id := range core.Directory(built).IDs() {
		if p, ok := built[id].(preparer); ok {
			if err := p.Prepare(ctx); err != nil {
				return nil, fmt.Errorf("prepare agent %q: %w", id, err)
			}
		}
	}

	agents := make([]core.Agent, 0, len(public))
	for _, spec := range public {
		a := built[spec.ID]
		if err := m.reg.Register(a); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	m.env.Logger.Info("agents materialized", "public", len(agents), "total", len(built))
	return agents, nil
}
