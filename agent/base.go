package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

// DefaultTimeout is the per-call budget of an agent that does not configure one.
const DefaultTimeout = 60 * time.Second

const instrumentationName = "github.com/hupe1980/knowledgenet/agent"

// Observer receives one notification per completed agent call.
// metrics.Collector implements it.
type Observer interface {
	ObserveCall(agentID, caller string, failed bool, duration time.Duration)
}

// Options configures a BaseAgent. Use functional options with the agent
// constructors to override defaults.
type Options struct {
	// DisplayName defaults to the agent identifier.
	DisplayName string
	Description string
	// Protocol defaults to core.ProtocolLocal.
	Protocol string
	// Details holds connection settings for non-local protocols.
	Details core.Details
	// Timeout bounds one call. Zero disables the budget.
	Timeout time.Duration
	// Transport serves non-local protocols.
	Transport core.Dispatcher
	Logger    logging.Logger
	Observer  Observer
	Tracer    trace.Tracer
	// MaxCallDepth bounds nested calls within one request. Zero disables the check.
	MaxCallDepth int
}

// BaseAgent implements the reply protocol shared by every agent kind:
// bracket the call with Call/Return events, isolate the callee on a copy of
// the log and translate failures into Return error text.
//
// Concrete agents embed *BaseAgent and supply a core.Answerer. Remote proxies
// use a BaseAgent with a non-local protocol and no answerer. All exported
// methods are goroutine-safe.
type BaseAgent struct {
	id          string
	displayName string
	description string
	protocol    string
	details     core.Details
	timeout     time.Duration
	answerer    core.Answerer
	transport   core.Dispatcher
	logger      logging.Logger
	observer    Observer
	tracer      trace.Tracer
	maxDepth    int

	mu        sync.RWMutex
	connected core.Directory
}

var _ core.Agent = (*BaseAgent)(nil)

// NewBaseAgent constructs a BaseAgent answering through answerer.
func NewBaseAgent(id string, answerer core.Answerer, optFns ...func(o *Options)) *BaseAgent {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return newBaseAgent(id, answerer, opts)
}

func defaultOptions() Options {
	return Options{
		Protocol:     core.ProtocolLocal,
		Timeout:      DefaultTimeout,
		Logger:       logging.NoOpLogger{},
		MaxCallDepth: core.DefaultMaxCallDepth,
	}
}

func newBaseAgent(id string, answerer core.Answerer, opts Options) *BaseAgent {
	if opts.DisplayName == "" {
		opts.DisplayName = id
	}
	if opts.Protocol == "" {
		opts.Protocol = core.ProtocolLocal
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}
	return &BaseAgent{
		id:          id,
		displayName: opts.DisplayName,
		description: opts.Description,
		protocol:    opts.Protocol,
		details:     opts.Details,
		timeout:     opts.Timeout,
		answerer:    answerer,
		transport:   opts.Transport,
		logger:      opts.Logger.With("agent", id),
		observer:    opts.Observer,
		tracer:      opts.Tracer,
		maxDepth:    opts.MaxCallDepth,
		connected:   core.Directory{},
	}
}

// ID returns the agent identifier.
func (b *BaseAgent) ID() string { return b.id }

// DisplayName returns the human-readable name.
func (b *BaseAgent) DisplayName() string { return b.displayName }

// Description returns the text routers match questions against.
func (b *BaseAgent) Description() string { return b.description }

// Protocol returns the protocol name.
func (b *BaseAgent) Protocol() string { return b.protocol }

// Timeout returns the per-call budget.
func (b *BaseAgent) Timeout() time.Duration { return b.timeout }

// Details returns the connection settings.
func (b *BaseAgent) Details() core.Details { return b.details }

// Logger returns the agent-scoped logger.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// Connected returns a copy of the directory of agents this agent may call.
func (b *BaseAgent) Connected() core.Directory {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected.Clone()
}

// SetConnected replaces the connected directory. It is called once during
// the wiring phase of materialization.
func (b *BaseAgent) SetConnected(dir core.Directory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dir == nil {
		dir = core.Directory{}
	}
	b.connected = dir.Clone()
}

// Reply appends a CallEvent to log, invokes the agent on a copy and returns
// the continuation terminated by the matching ReturnEvent.
func (b *BaseAgent) Reply(ctx context.Context, log *core.ChatHistory, caller string) *core.ChatHistory {
	if log == nil {
		log = core.NewChatHistory()
	}
	if caller == "" {
		caller = core.UserOriginator
	}

	log.WithCallEvent(caller, b.id, b.timeout)
	call, _ := log.LastEvent()
	matching := core.NewChatHistory(call)
	frame := log.Copy()

	ctx, span := b.tracer.Start(ctx, "knowledgenet.reply",
		trace.WithAttributes(
			attribute.String("knowledgenet.agent", b.id),
			attribute.String("knowledgenet.caller", caller),
			attribute.String("knowledgenet.protocol", b.protocol),
		),
	)
	defer span.End()

	start := time.Now()
	b.logger.Debug("agent call", "caller", caller, "protocol", b.protocol, "depth", core.CallDepth(ctx)+1)

	var (
		cont    *core.ChatHistory
		errText string
	)
	callCtx, err := core.EnterCall(ctx, b.maxDepth)
	switch {
	case err != nil:
		errText = err.Error()
	case b.protocol == core.ProtocolLocal:
		cont, errText = b.answer(callCtx, frame)
	default:
		cont, errText = b.dispatch(callCtx, frame)
	}
	if cont == nil {
		cont = core.NewChatHistory()
	}

	cont, err = cont.WithReturnEvent(matching, errText)
	if err != nil {
		// matching always ends in the call appended above
		cont.Append(core.NewReturn(caller, b.id, errText))
	}

	duration := time.Since(start)
	failed := errText != ""
	if failed {
		span.SetStatus(codes.Error, errText)
		b.logger.Warn("agent call failed", "caller", caller, "error", errText, "duration", duration)
	}
	if b.observer != nil {
		b.observer.ObserveCall(b.id, caller, failed, duration)
	}
	return cont
}

// answer invokes the local answerer under the timeout budget. Panics in the
// answerer are recovered into error text.
func (b *BaseAgent) answer(ctx context.Context, frame *core.ChatHistory) (*core.ChatHistory, string) {
	if b.answerer == nil {
		return nil, fmt.Errorf("%w: agent %q has no answerer", core.ErrAnswerFailure, b.id).Error()
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	done := make(chan answerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- answerResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		cont, err := b.answerer.Answer(ctx, frame)
		done <- answerResult{cont: cont, err: err}
	}()

	return awaitAnswer(ctx, done)
}

type answerResult struct {
	cont *core.ChatHistory
	err  error
}

func (r answerResult) outcome() (*core.ChatHistory, string) {
	if r.err != nil {
		return r.cont, answerError(r.err)
	}
	return r.cont, ""
}

// awaitAnswer waits for the answerer or the end of ctx. An answer that is
// already delivered when ctx ends is kept.
func awaitAnswer(ctx context.Context, done <-chan answerResult) (*core.ChatHistory, string) {
	select {
	case r := <-done:
		return r.outcome()
	case <-ctx.Done():
		select {
		case r := <-done:
			return r.outcome()
		default:
			return nil, answerError(ctx.Err())
		}
	}
}

func answerError(err error) string {
	if errors.Is(err, core.ErrAnswerFailure) {
		return err.Error()
	}
	return fmt.Errorf("%w: %w", core.ErrAnswerFailure, err).Error()
}

func (b *BaseAgent) dispatch(ctx context.Context, frame *core.ChatHistory) (*core.ChatHistory, string) {
	if b.transport == nil {
		return nil, fmt.Errorf("%w: no transport for protocol %q", core.ErrUnknownProtocol, b.protocol).Error()
	}
	cont, errText := b.transport.Dispatch(ctx, b.protocol, b.id, frame, b.details, b.timeout)
	return unwrapReturn(cont, errText)
}

// unwrapReturn drops the Return a remote server appended for its own side of
// the call, so the exchange keeps a single bracket. A remote failure becomes
// the error text of this call.
func unwrapReturn(cont *core.ChatHistory, errText string) (*core.ChatHistory, string) {
	events := cont.Events()
	if len(events) == 0 {
		return cont, errText
	}
	ret, ok := events[len(events)-1].(core.ReturnEvent)
	if !ok {
		return cont, errText
	}
	if errText == "" {
		errText = ret.Error
	}
	return core.NewChatHistory(events[:len(events)-1]...), errText
}

// ReplyTo resolves id and calls it. An unknown id yields the call bracket
// with an error Return instead of a Go error, so callers handle it like any
// other failed call.
func ReplyTo(ctx context.Context, resolver core.Resolver, id string, log *core.ChatHistory, caller string) *core.ChatHistory {
	if log == nil {
		log = core.NewChatHistory()
	}
	if caller == "" {
		caller = core.UserOriginator
	}
	a, err := resolver.Lookup(id)
	if err != nil {
		log.WithCallEvent(caller, id, 0)
		return core.NewChatHistory(core.NewReturn(caller, id, err.Error()))
	}
	return a.Reply(ctx, log, caller)
}
