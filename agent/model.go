package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/model"
)

// ModelAgentOptions configures a ModelAgent.
type ModelAgentOptions struct {
	Options
	Instruction     Instruction
	EnableStreaming bool
	// MaxHistoryMessages keeps only the most recent visible messages. Zero keeps all.
	MaxHistoryMessages int
}

// ModelAgent answers by sending the visible conversation to a language model.
type ModelAgent struct {
	*BaseAgent
	llm                model.Model
	instruction        Instruction
	enableStreaming    bool
	maxHistoryMessages int
}

// NewModelAgent creates a model-backed agent.
//
// Defaults: a generic assistant instruction naming the agent, non-streaming
// requests and the 20 most recent messages.
func NewModelAgent(id string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Options:            defaultOptions(),
		MaxHistoryMessages: 20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction.isZero() {
		name := opts.DisplayName
		if name == "" {
			name = id
		}
		opts.Instruction = NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name))
	}

	a := &ModelAgent{
		llm:                llm,
		instruction:        opts.Instruction,
		enableStreaming:    opts.EnableStreaming,
		maxHistoryMessages: opts.MaxHistoryMessages,
	}
	a.BaseAgent = newBaseAgent(id, core.AnswererFunc(a.answer), opts.Options)
	return a
}

// Model returns the underlying language model.
func (a *ModelAgent) Model() model.Model { return a.llm }

func (a *ModelAgent) answer(ctx context.Context, log *core.ChatHistory) (*core.ChatHistory, error) {
	instructions, err := a.instruction.Resolve(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("resolve instruction: %w", err)
	}

	msgs := model.MessagesFromHistory(log)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: no messages", core.ErrAnswerFailure)
	}
	if a.maxHistoryMessages > 0 && len(msgs) > a.maxHistoryMessages {
		msgs = msgs[len(msgs)-a.maxHistoryMessages:]
	}

	text, err := model.GenerateText(ctx, a.llm, model.Request{
		Instructions: instructions,
		Messages:     msgs,
		Stream:       a.enableStreaming,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	a.Logger().Debug("model answer", "model", a.llm.Info().Name, "chars", len(text))
	return core.NewChatHistory(core.NewAssistantMessage(a.ID(), strings.TrimSpace(text))), nil
}
