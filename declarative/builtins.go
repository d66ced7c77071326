package declarative

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/knowledgenet/agent"
	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/embedding"
	embopenai "github.com/hupe1980/knowledgenet/embedding/openai"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/match"
	"github.com/hupe1980/knowledgenet/model"
	"github.com/hupe1980/knowledgenet/model/anthropic"
	"github.com/hupe1980/knowledgenet/model/openai"
	"github.com/hupe1980/knowledgenet/registry"
	"github.com/hupe1980/knowledgenet/retrieval"
	"github.com/hupe1980/knowledgenet/summarize"
)

// Built-in kinds.
const (
	KindFixed  = "fixed"
	KindModel  = "model"
	KindRouter = "router"
	KindRAG    = "rag"
)

// Key names read by the built-in kinds.
const (
	OpenAIKey    = "openai_api_key"
	AnthropicKey = "anthropic_api_key"
)

// RegisterBuiltins registers the fixed, model, router and rag kinds.
func RegisterBuiltins(reg *registry.Registry) {
	reg.RegisterKind(KindFixed, newFixed)
	reg.RegisterKind(KindModel, newModelAgent)
	reg.RegisterKind(KindRouter, newRouter)
	reg.RegisterKind(KindRAG, newRAG)
}

func newFixed(_ context.Context, spec registry.AgentSpec, env registry.Env) (core.Agent, error) {
	msg, err := spec.Args.String("message", agent.DefaultFixedMessage)
	if err != nil {
		return nil, err
	}
	return agent.NewFixedAgent(spec.ID, msg, env.AgentOptions(spec)), nil
}

func newModelAgent(_ context.Context, spec registry.AgentSpec, env registry.Env) (core.Agent, error) {
	llm, err := buildModel(spec.Args, "", env)
	if err != nil {
		return nil, err
	}
	instructions, err := spec.Args.String("instructions", "")
	if err != nil {
		return nil, err
	}
	history, err := spec.Args.Int("max_history_messages", 20)
	if err != nil {
		return nil, err
	}
	stream, err := spec.Args.Bool("stream", false)
	if err != nil {
		return nil, err
	}
	return agent.NewModelAgent(spec.ID, llm, func(o *agent.ModelAgentOptions) {
		env.AgentOptions(spec)(&o.Options)
		if instructions != "" {
			o.Instruction = agent.NewInstructionFromTemplate(instructions)
		}
		o.MaxHistoryMessages = history
		o.EnableStreaming = stream
	}), nil
}

func newRouter(_ context.Context, spec registry.AgentSpec, env registry.Env) (core.Agent, error) {
	baseline, err := spec.Args.String("baseline", agent.DefaultBaseline)
	if err != nil {
		return nil, err
	}
	k, err := spec.Args.Int("k", agent.DefaultRouterK)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, &util.ValidationError{Field: "k", Value: k, Message: "must be positive"}
	}
	parallel, err := spec.Args.Bool("parallel", false)
	if err != nil {
		return nil, err
	}
	fanOut, err := spec.Args.Duration("fan_out_timeout", 0)
	if err != nil {
		return nil, err
	}
	embedder, err := buildEmbedder(spec.Args)
	if err != nil {
		return nil, err
	}

	var summarizer agent.Summarizer
	if _, ok := spec.Args["summarizer_provider"]; ok {
		llm, err := buildModel(spec.Args, "summarizer_", env)
		if err != nil {
			return nil, err
		}
		summarizer = summarize.New(llm, func(o *summarize.Options) { o.Logger = env.Logger })
	}

	return agent.NewRouterAgent(spec.ID, func(o *agent.RouterOptions) {
		env.AgentOptions(spec)(&o.Options)
		o.Baseline = baseline
		o.K = k
		o.Parallel = parallel
		o.FanOutTimeout = fanOut
		o.IndexBuilder = match.EmbeddingIndex(embedder)
		o.Summarizer = summarizer
	}), nil
}

func newRAG(ctx context.Context, spec registry.AgentSpec, env registry.Env) (core.Agent, error) {
	docs, err := spec.Args.RequiredString("documents")
	if err != nil {
		return nil, err
	}
	k, err := spec.Args.Int("k", 4)
	if err != nil {
		return nil, err
	}
	chunk, err := spec.Args.Int("chunk_chars", retrieval.DefaultChunkChars)
	if err != nil {
		return nil, err
	}
	embedder, err := buildEmbedder(spec.Args)
	if err != nil {
		return nil, err
	}
	llm, err := buildModel(spec.Args, "", env)
	if err != nil {
		return nil, err
	}

	index := retrieval.NewInMemoryIndex(embedder)
	if err := index.AddDocuments(ctx, docs, chunk); err != nil {
		return nil, err
	}

	var condenser agent.QuestionCondenser
	if condense, err := spec.Args.Bool("condense_question", true); err != nil {
		return nil, err
	} else if condense {
		condenser = summarize.New(llm, func(o *summarize.Options) { o.Logger = env.Logger })
	}

	return agent.NewRAGAgent(spec.ID, index, llm, func(o *agent.RAGAgentOptions) {
		env.AgentOptions(spec)(&o.Options)
		o.K = k
		o.Condenser = condenser
	}), nil
}

// buildModel creates the model selected by args[prefix+"provider"].
func buildModel(args util.Args, prefix string, env registry.Env) (model.Model, error) {
	provider, err := args.String(prefix+"provider", "mock")
	if err != nil {
		return nil, err
	}
	name, err := args.String(prefix+"model", "")
	if err != nil {
		return nil, err
	}
	temperature, err := args.Float("temperature", 0.7)
	if err != nil {
		return nil, err
	}

	var m model.Model
	switch provider {
	case "openai":
		key, err := args.RequiredString(OpenAIKey)
		if err != nil {
			return nil, err
		}
		baseURL, _ := args.String("base_url", "")
		m = openai.NewModel(func(o *openai.Options) {
			o.APIKey = key
			o.BaseURL = baseURL
			o.Temperature = temperature
			if name != "" {
				o.Model = name
			}
		})
	case "anthropic":
		key, err := args.RequiredString(AnthropicKey)
		if err != nil {
			return nil, err
		}
		m = anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = key
			o.Temperature = temperature
			if name != "" {
				o.Model = anthropicsdk.Model(name)
			}
		})
	case "mock":
		if name == "" {
			name = "mock"
		}
		m = model.NewMockModel(name, "mock")
	default:
		return nil, &util.ValidationError{Field: prefix + "provider", Value: provider, Message: "must be openai, anthropic or mock"}
	}

	if obs, ok := env.Observer.(model.Observer); ok {
		m = model.WithObserver(m, obs)
	}
	return m, nil
}

// buildEmbedder creates the embedder selected by args["embedder"].
func buildEmbedder(args util.Args) (embedding.Embedder, error) {
	kind, err := args.String("embedder", "hash")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "hash":
		return embedding.NewHashEmbedder(), nil
	case "openai":
		key, err := args.RequiredString(OpenAIKey)
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		return embopenai.NewEmbedder(func(o *embopenai.Options) { o.APIKey = key }), nil
	default:
		return nil, &util.ValidationError{Field: "embedder", Value: kind, Message: "must be hash or openai"}
	}
}
