package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/model"
	"github.com/hupe1980/knowledgenet/retrieval"
)

// QuotesTemplate is the default system prompt of a RAGAgent. It receives the
// retrieved passages as .context.
const QuotesTemplate = `Use the following quotes to answer the user's question.
Phrase the answer as straightforward assertions, don't say "the quotes suggest...", don't hedge, don't moralize.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

----------------
{{.context}}`

// QuestionCondenser restates the latest question of a log so it can be
// understood without the preceding turns. summarize.Summarizer implements it.
type QuestionCondenser interface {
	MakeStandaloneQuestion(ctx context.Context, log *core.ChatHistory) (string, error)
}

// RAGAgentOptions configures a RAGAgent.
type RAGAgentOptions struct {
	Options
	// K is the number of passages retrieved per question.
	K        int
	Template string
	// Condenser, when set, rewrites follow-up questions before retrieval.
	Condenser QuestionCondenser
}

// RAGAgent answers from passages retrieved for the latest question.
type RAGAgent struct {
	*BaseAgent
	retriever retrieval.Retriever
	llm       model.Model
	k         int
	template  string
	condenser QuestionCondenser
}

// NewRAGAgent creates a retrieval-backed agent.
func NewRAGAgent(id string, retriever retrieval.Retriever, llm model.Model, optFns ...func(o *RAGAgentOptions)) *RAGAgent {
	opts := RAGAgentOptions{
		Options:  defaultOptions(),
		K:        4,
		Template: QuotesTemplate,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	a := &RAGAgent{
		retriever: retriever,
		llm:       llm,
		k:         opts.K,
		template:  opts.Template,
		condenser: opts.Condenser,
	}
	a.BaseAgent = newBaseAgent(id, core.AnswererFunc(a.answer), opts.Options)
	return a
}

func (a *RAGAgent) answer(ctx context.Context, log *core.ChatHistory) (*core.ChatHistory, error) {
	question, err := a.question(ctx, log)
	if err != nil {
		return nil, err
	}

	passages, err := a.retriever.Retrieve(ctx, question, a.k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	quotes := make([]string, len(passages))
	for i, p := range passages {
		quotes[i] = p.Content
	}

	system, err := util.RenderTemplate(a.template, map[string]any{"context": strings.Join(quotes, "\n\n")})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	text, err := model.GenerateText(ctx, a.llm, model.Request{
		Instructions: system,
		Messages:     []model.Message{{Role: core.RoleUser, Text: question}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	a.Logger().Debug("rag answer", "passages", len(passages))
	return core.NewChatHistory(core.NewAssistantMessage(a.ID(), strings.TrimSpace(text))), nil
}

func (a *RAGAgent) question(ctx context.Context, log *core.ChatHistory) (string, error) {
	if !log.HasSummary(core.SummaryStandaloneQuestion) && a.condenser != nil {
		q, err := a.condenser.MakeStandaloneQuestion(ctx, log)
		if err != nil {
			return "", fmt.Errorf("condense question: %w", err)
		}
		return q, nil
	}
	q, ok := log.LatestQuestion()
	if !ok {
		return "", fmt.Errorf("%w: no question", core.ErrAnswerFailure)
	}
	return q, nil
}
