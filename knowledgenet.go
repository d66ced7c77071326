// Package knowledgenet wires the registry, the transports, the declarative
// loader and the HTTP surface into one object. Most applications:
//  1. Create a KnowledgeNet via New, passing credentials and a logger
//  2. Register agents programmatically or load a configuration directory
//  3. Ask an agent directly or serve the public agents over HTTP
//
// Each piece stays usable on its own; the façade only saves the wiring.
package knowledgenet

import (
	"context"
	"fmt"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/declarative"
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/metrics"
	"github.com/hupe1980/knowledgenet/registry"
	"github.com/hupe1980/knowledgenet/server"
	"github.com/hupe1980/knowledgenet/transport"
)

// Options configures a KnowledgeNet.
type Options struct {
	Logger logging.Logger
	// Metrics observes agent calls and HTTP requests when set.
	Metrics *metrics.Collector
	// Dispatcher serves non-local agents. Defaults to the http, websocket
	// and mock transports.
	Dispatcher core.Dispatcher
	// Keys are the credentials declarative agents may request.
	Keys         map[string]string
	MaxCallDepth int
}

// KnowledgeNet is the façade over one process-wide registry.
type KnowledgeNet struct {
	reg        *registry.Registry
	dispatcher core.Dispatcher
	logger     logging.Logger
	metrics    *metrics.Collector
	maxDepth   int
}

// New creates a KnowledgeNet with the built-in agent kinds registered.
func New(optFns ...func(o *Options)) *KnowledgeNet {
	opts := Options{
		Logger:       logging.NoOpLogger{},
		MaxCallDepth: core.DefaultMaxCallDepth,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = transport.Default(opts.Logger)
	}

	reg := registry.New(func(o *registry.Options) { o.Logger = opts.Logger })
	declarative.RegisterBuiltins(reg)
	reg.SetKeys(opts.Keys)

	return &KnowledgeNet{
		reg:        reg,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		maxDepth:   opts.MaxCallDepth,
	}
}

// Registry returns the public directory and materialization tables.
func (k *KnowledgeNet) Registry() *registry.Registry { return k.reg }

// Dispatcher returns the transport dispatcher remote agents use.
func (k *KnowledgeNet) Dispatcher() core.Dispatcher { return k.dispatcher }

// AgentOptions applies the shared logger, transport, observer and depth
// limit to a programmatically constructed agent.
func (k *KnowledgeNet) AgentOptions() func(o *agent.Options) {
	return func(o *agent.Options) {
		o.Logger = k.logger
		o.Transport = k.dispatcher
		o.MaxCallDepth = k.maxDepth
		if k.metrics != nil {
			o.Observer = k.metrics
		}
	}
}

// Register adds agents to the public directory.
func (k *KnowledgeNet) Register(agents ...core.Agent) error {
	for _, a := range agents {
		if err := k.reg.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// Load materializes the agents declared in dir and registers the public ones.
func (k *KnowledgeNet) Load(ctx context.Context, dir string) ([]core.Agent, error) {
	m := declarative.NewMaterializer(k.reg, func(o *declarative.MaterializerOptions) {
		o.Logger = k.logger
		o.Dispatcher = k.dispatcher
		o.MaxCallDepth = k.maxDepth
		if k.metrics != nil {
			o.Observer = k.metrics
		}
	})
	agents, err := m.MaterializePublic(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, err)
	}
	k.logger.Info("agents loaded", "dir", dir, "public", len(agents))
	return agents, nil
}

// Ask appends question to history, calls the public agent id and extends
// history with the continuation, which is also returned.
func (k *KnowledgeNet) Ask(ctx context.Context, id string, history *core.ChatHistory, question string) *core.ChatHistory {
	history.Append(core.NewUserMessage(question))
	cont := agent.ReplyTo(ctx, k.reg, id, history, core.UserOriginator)
	history.Extend(cont)
	return cont
}

// Handler returns the HTTP surface for the public agents.
func (k *KnowledgeNet) Handler(optFns ...func(o *server.Options)) *server.Server {
	return server.New(k.reg, append([]func(o *server.Options){func(o *server.Options) {
		o.Logger = k.logger
		o.Metrics = k.metrics
	}}, optFns...)...)
}

// RenderError formats a trailing failed Return of cont for display.
func RenderError(cont *core.ChatHistory) (string, bool) {
	called, errText, ok := cont.Error()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("Knowledge base %s error: \"%s\"", called, errText), true
}
