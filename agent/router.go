package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/embedding"
	"github.com/hupe1980/knowledgenet/match"
)

// Router defaults.
const (
	DefaultBaseline = "general"
	DefaultRouterK  = 4
)

// Summarizer appends a summary of the requested kind to a log that lacks
// one. summarize.Summarizer implements it.
type Summarizer interface {
	AddSummaryIfMissing(ctx context.Context, log *core.ChatHistory, originator string, kind core.SummaryKind) error
}

// ChildReply is the continuation one selected child produced.
type ChildReply struct {
	ID          string
	DisplayName string
	Reply       *core.ChatHistory
}

// MergeFunc combines the child replies into the router's continuation.
type MergeFunc func(routerID string, replies []ChildReply) *core.ChatHistory

// DefaultMerge prefixes each child's visible message texts with its display
// name and joins all blocks into one assistant message.
func DefaultMerge(routerID string, replies []ChildReply) *core.ChatHistory {
	blocks := make([]string, len(replies))
	for i, r := range replies {
		msgs := r.Reply.Messages(false)
		texts := make([]string, len(msgs))
		for j, m := range msgs {
			texts[j] = m.MessageText
		}
		blocks[i] = fmt.Sprintf("From **%s**:\n\n%s", r.DisplayName, strings.Join(texts, "\n\n"))
	}
	return core.NewChatHistory(core.NewAssistantMessage(routerID, strings.Join(blocks, "\n\n")))
}

// RouterOptions configures a RouterAgent.
type RouterOptions struct {
	Options
	// Baseline names the child every selected child must outscore.
	Baseline string
	// K bounds the number of selected children.
	K int
	// Parallel invokes the selected children concurrently.
	Parallel bool
	// FanOutTimeout caps all child calls of one question. Zero leaves only
	// the router's own budget.
	FanOutTimeout time.Duration
	Summarizer    Summarizer
	IndexBuilder  match.IndexBuilder
	Merge         MergeFunc
}

// RouterAgent forwards a question to the connected agents whose descriptions
// match it best and merges their answers.
type RouterAgent struct {
	*BaseAgent
	baseline      string
	k             int
	parallel      bool
	fanOutTimeout time.Duration
	summarizer    Summarizer
	buildIndex    match.IndexBuilder
	merge         MergeFunc

	indexMu sync.Mutex
	matcher match.Matcher
}

// NewRouterAgent creates a router. Without an IndexBuilder descriptions are
// matched with an offline HashEmbedder; without a Summarizer the latest
// visible message is routed as is.
func NewRouterAgent(id string, optFns ...func(o *RouterOptions)) *RouterAgent {
	opts := RouterOptions{
		Options:  defaultOptions(),
		Baseline: DefaultBaseline,
		K:        DefaultRouterK,
		Merge:    DefaultMerge,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.IndexBuilder == nil {
		opts.IndexBuilder = match.EmbeddingIndex(embedding.NewHashEmbedder())
	}
	if opts.Merge == nil {
		opts.Merge = DefaultMerge
	}

	a := &RouterAgent{
		baseline:      opts.Baseline,
		k:             opts.K,
		parallel:      opts.Parallel,
		fanOutTimeout: opts.FanOutTimeout,
		summarizer:    opts.Summarizer,
		buildIndex:    opts.IndexBuilder,
		merge:         opts.Merge,
	}
	a.BaseAgent = newBaseAgent(id, core.AnswererFunc(a.answer), opts.Options)
	return a
}

// Baseline returns the baseline child identifier.
func (a *RouterAgent) Baseline() string { return a.baseline }

// SetConnected replaces the children and discards the description index.
func (a *RouterAgent) SetConnected(dir core.Directory) {
	a.BaseAgent.SetConnected(dir)
	a.indexMu.Lock()
	a.matcher = nil
	a.indexMu.Unlock()
}

// Prepare builds the description index. It runs on the first question when
// not called explicitly.
func (a *RouterAgent) Prepare(ctx context.Context) error {
	_, err := a.index(ctx)
	return err
}

func (a *RouterAgent) index(ctx context.Context) (match.Matcher, error) {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()
	if a.matcher != nil {
		return a.matcher, nil
	}
	texts := map[string]string{}
	for id, child := range a.Connected() {
		texts[id] = child.Description()
	}
	m, err := a.buildIndex(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("build description index: %w", err)
	}
	a.matcher = m
	return m, nil
}

// Select returns the children to consult for question.
func (a *RouterAgent) Select(ctx context.Context, question string) ([]string, error) {
	m, err := a.index(ctx)
	if err != nil {
		return nil, err
	}
	scored, err := m.SearchWithScore(ctx, question, a.k)
	if err != nil {
		return nil, fmt.Errorf("match question: %w", err)
	}
	return match.BaselineOrBetter(scored, a.baseline, a.k), nil
}

func (a *RouterAgent) answer(ctx context.Context, log *core.ChatHistory) (*core.ChatHistory, error) {
	if a.summarizer != nil && log.HasMessages() {
		if err := a.summarizer.AddSummaryIfMissing(ctx, log, a.ID(), core.SummaryStandaloneQuestion); err != nil {
			return nil, fmt.Errorf("%w: summarize: %w", core.ErrAnswerFailure, err)
		}
	}

	question, ok := log.LatestQuestion()
	if !ok {
		return nil, fmt.Errorf("%w: no question", core.ErrAnswerFailure)
	}

	selected, err := a.Select(ctx, question)
	if err != nil {
		return nil, err
	}
	a.Logger().Debug("route", "question", question, "selected", selected)

	replies := a.fanOut(ctx, log, selected)
	for _, r := range replies {
		if called, errText, failed := r.Reply.Error(); failed {
			a.Logger().Warn("child call failed", "child", called, "error", errText)
		}
	}
	return a.merge(a.ID(), replies), nil
}

// fanOut calls every selected child on its own copy of log. Replies are in
// selection order.
func (a *RouterAgent) fanOut(ctx context.Context, log *core.ChatHistory, selected []string) []ChildReply {
	if a.fanOutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.fanOutTimeout)
		defer cancel()
	}

	connected := a.Connected()
	replies := make([]ChildReply, len(selected))
	call := func(i int, id string) {
		display := id
		if child, ok := connected[id]; ok {
			display = child.DisplayName()
		}
		replies[i] = ChildReply{
			ID:          id,
			DisplayName: display,
			Reply:       ReplyTo(ctx, connected, id, log.Copy(), a.ID()),
		}
	}

	if !a.parallel {
		for i, id := range selected {
			call(i, id)
		}
		return replies
	}

	var g errgroup.Group
	for i, id := range selected {
		g.Go(func() error {
			call(i, id)
			return nil
		})
	}
	_ = g.Wait()
	return replies
}
