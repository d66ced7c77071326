// Package summarize adds summary events to chat histories, such as a
// standalone restatement of the latest question.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/util"
	"github.com/hupe1980/knowledgenet/logging"
	"github.com/hupe1980/knowledgenet/model"
)

// StandaloneQuestionTemplate is the default prompt. It receives the rendered
// chat history and the follow up question.
const StandaloneQuestionTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat history:
{{.chat_history}}
Follow up question: {{.question}}
Standalone question:`

// ErrNoMessages is returned when a summary is requested for a log without
// visible messages.
var ErrNoMessages = errors.New("no messages to summarize")

// Options configures a Summarizer.
type Options struct {
	Template string
	Logger   logging.Logger
}

// Summarizer produces summaries with a language model.
type Summarizer struct {
	model model.Model
	opts  Options
}

// New creates a Summarizer backed by m.
func New(m model.Model, optFns ...func(o *Options)) *Summarizer {
	opts := Options{Template: StandaloneQuestionTemplate, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Summarizer{model: m, opts: opts}
}

// MakeStandaloneQuestion restates the latest message as a self-contained
// question. A log with a single message is returned as is, without a model call.
func (s *Summarizer) MakeStandaloneQuestion(ctx context.Context, log *core.ChatHistory) (string, error) {
	msgs := log.Messages(false)
	if len(msgs) == 0 {
		return "", ErrNoMessages
	}
	question := msgs[len(msgs)-1].MessageText
	if len(msgs) == 1 {
		return question, nil
	}

	prompt, err := util.RenderTemplate(s.opts.Template, map[string]any{
		"chat_history": renderHistory(msgs[:len(msgs)-1]),
		"question":     question,
	})
	if err != nil {
		return "", err
	}

	text, err := model.GenerateText(ctx, s.model, model.Request{
		Messages: []model.Message{{Role: core.RoleUser, Text: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("standalone question: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.opts.Logger.Warn("model returned empty standalone question, using follow up question")
		return question, nil
	}
	return text, nil
}

// MakeSummaryOfType produces a summary of the given kind.
func (s *Summarizer) MakeSummaryOfType(ctx context.Context, log *core.ChatHistory, kind core.SummaryKind) (string, error) {
	if kind == core.SummaryStandaloneQuestion {
		return s.MakeStandaloneQuestion(ctx, log)
	}
	return "", fmt.Errorf("unknown summary type %q", kind)
}

// AddSummaryOfType appends a summary of the given kind to log.
func (s *Summarizer) AddSummaryOfType(ctx context.Context, log *core.ChatHistory, originator string, kind core.SummaryKind) error {
	text, err := s.MakeSummaryOfType(ctx, log, kind)
	if err != nil {
		return err
	}
	log.Append(core.NewSummary(originator, kind, text))
	return nil
}

// AddSummaryIfMissing appends a summary when the log has messages and no
// summary of that kind follows the latest message.
func (s *Summarizer) AddSummaryIfMissing(ctx context.Context, log *core.ChatHistory, originator string, kind core.SummaryKind) error {
	if !log.HasMessages() || log.HasSummary(kind) {
		return nil
	}
	return s.AddSummaryOfType(ctx, log, originator, kind)
}

func renderHistory(msgs []core.MessageEvent) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case core.RoleAssistant:
			b.WriteString("Assistant: ")
		case core.RoleSystem:
			b.WriteString("System: ")
		default:
			b.WriteString("Human: ")
		}
		b.WriteString(m.MessageText)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
