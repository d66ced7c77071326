package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/testutil"
)

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, protocol, agentID string, log *core.ChatHistory, details core.Details, timeout time.Duration) (*core.ChatHistory, string) {
	args := m.Called(ctx, protocol, agentID, log, details, timeout)
	h, _ := args.Get(0).(*core.ChatHistory)
	return h, args.String(1)
}

func (m *mockDispatcher) Lookup(string) (core.Transport, error) { return nil, nil }

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveCall(agentID, caller string, failed bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if failed {
		status = "error"
	}
	o.calls = append(o.calls, agentID+"/"+caller+"/"+status)
}

func TestBaseAgent_Defaults(t *testing.T) {
	a := NewFixedAgent("kb", "")
	assert.Equal(t, "kb", a.ID())
	assert.Equal(t, "kb", a.DisplayName())
	assert.Equal(t, core.ProtocolLocal, a.Protocol())
	assert.Equal(t, DefaultTimeout, a.Timeout())
	assert.Equal(t, DefaultFixedMessage, a.Message())
	assert.Empty(t, a.Connected())
}

func TestBaseAgent_ReplyBracketsCall(t *testing.T) {
	a := NewFixedAgent("kb", "hi there", func(o *Options) {
		o.DisplayName = "Knowledge Base"
		o.Timeout = 5 * time.Second
	})
	log := core.FromString("hello")

	cont := a.Reply(t.Context(), log, "")

	// the caller's log gains the call
	require.Equal(t, 2, log.Len())
	last, _ := log.LastEvent()
	call := last.(core.CallEvent)
	assert.Equal(t, core.UserOriginator, call.Caller)
	assert.Equal(t, "kb", call.Called)
	assert.Equal(t, 5, call.TimeOutSeconds)

	require.Equal(t, 2, cont.Len())
	assert.Equal(t, []string{"hi there"}, testutil.MessageTexts(cont))
	msg := cont.Events()[0].(core.MessageEvent)
	assert.Equal(t, "kb", msg.Originator)
	assert.Equal(t, core.RoleAssistant, msg.Role)

	ret := testutil.RequireReturn(t, cont, core.UserOriginator, "kb")
	assert.Empty(t, ret.Error)
	assert.False(t, cont.ReturnedError())
}

func TestBaseAgent_AnswererGetsPrivateCopy(t *testing.T) {
	var seen *core.ChatHistory
	a := NewBaseAgent("kb", core.AnswererFunc(func(_ context.Context, log *core.ChatHistory) (*core.ChatHistory, error) {
		seen = log
		log.Append(core.NewUserMessage("scribble"))
		return core.NewChatHistory(), nil
	}))
	log := core.FromString("hello")

	cont := a.Reply(t.Context(), log, "router")

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, 3, seen.Len())
	testutil.RequireReturn(t, cont, "router", "kb")
}

func TestBaseAgent_Failures(t *testing.T) {
	tests := []struct {
		name     string
		answerer core.Answerer
		timeout  time.Duration
		want     error
		contains string
	}{
		{
			name: "answer error",
			answerer: core.AnswererFunc(func(context.Context, *core.ChatHistory) (*core.ChatHistory, error) {
				return nil, errors.New("index offline")
			}),
			want:     core.ErrAnswerFailure,
			contains: "index offline",
		},
		{
			name: "panic",
			answerer: core.AnswererFunc(func(context.Context, *core.ChatHistory) (*core.ChatHistory, error) {
				panic("kaboom")
			}),
			want:     core.ErrAnswerFailure,
			contains: "kaboom",
		},
		{
			name: "timeout",
			answerer: core.AnswererFunc(func(ctx context.Context, _ *core.ChatHistory) (*core.ChatHistory, error) {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return core.FromString("late"), nil
			}),
			timeout:  20 * time.Millisecond,
			want:     core.ErrAnswerFailure,
			contains: "deadline exceeded",
		},
		{
			name:     "no answerer",
			answerer: nil,
			want:     core.ErrAnswerFailure,
			contains: "no answerer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewBaseAgent("kb", tt.answerer, func(o *Options) {
				if tt.timeout > 0 {
					o.Timeout = tt.timeout
				}
			})

			cont := a.Reply(t.Context(), core.FromString("q"), "user")

			called, errText, ok := cont.Error()
			require.True(t, ok)
			assert.Equal(t, "kb", called)
			assert.Contains(t, errText, tt.want.Error())
			assert.Contains(t, errText, tt.contains)
			assert.Empty(t, testutil.MessageTexts(cont))
		})
	}
}

func TestAwaitAnswer_DeliveredAtDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// both cases are ready; the select must keep the answer either way
	for range 100 {
		done := make(chan answerResult, 1)
		done <- answerResult{cont: core.NewChatHistory(core.NewAssistantMessage("kb", "just in time"))}

		cont, errText := awaitAnswer(ctx, done)
		require.Empty(t, errText)
		assert.Equal(t, []string{"just in time"}, testutil.MessageTexts(cont))
	}

	cont, errText := awaitAnswer(ctx, make(chan answerResult))
	assert.Nil(t, cont)
	assert.Contains(t, errText, context.Canceled.Error())
}

func TestBaseAgent_PartialContinuationOnError(t *testing.T) {
	a := NewBaseAgent("kb", core.AnswererFunc(func(context.Context, *core.ChatHistory) (*core.ChatHistory, error) {
		return core.NewChatHistory(core.NewAssistantMessage("kb", "partial")), errors.New("cut short")
	}))

	cont := a.Reply(t.Context(), core.FromString("q"), "user")

	assert.Equal(t, []string{"partial"}, testutil.MessageTexts(cont))
	assert.True(t, cont.ReturnedError())
}

func TestBaseAgent_CallDepth(t *testing.T) {
	a := NewFixedAgent("kb", "hi", func(o *Options) { o.MaxCallDepth = 2 })

	cont := a.Reply(core.WithCallDepth(t.Context(), 2), core.FromString("q"), "user")
	_, errText, ok := cont.Error()
	require.True(t, ok)
	assert.Contains(t, errText, core.ErrCallDepthExceeded.Error())

	cont = a.Reply(core.WithCallDepth(t.Context(), 1), core.FromString("q"), "user")
	assert.False(t, cont.ReturnedError())
}

func TestBaseAgent_Observer(t *testing.T) {
	obs := &recordingObserver{}
	ok := NewFixedAgent("fine", "hi", func(o *Options) { o.Observer = obs })
	bad := NewBaseAgent("broken", nil, func(o *Options) { o.Observer = obs })

	ok.Reply(t.Context(), core.FromString("q"), "user")
	bad.Reply(t.Context(), core.FromString("q"), "router")

	assert.Equal(t, []string{"fine/user/ok", "broken/router/error"}, obs.calls)
}

func TestNewRemote(t *testing.T) {
	d := &mockDispatcher{}
	details := core.Details{"url": "http://example.test"}
	d.On("Dispatch", mock.Anything, "http", "far", mock.MatchedBy(func(h *core.ChatHistory) bool {
		last, _ := h.LastEvent()
		_, isCall := last.(core.CallEvent)
		return isCall && h.Len() == 2
	}), details, 10*time.Second).
		Return(core.NewChatHistory(core.NewAssistantMessage("far", "from afar")), "").Once()

	a := NewRemote("far", "http", details, d, func(o *Options) { o.Timeout = 10 * time.Second })
	assert.Equal(t, "http", a.Protocol())

	cont := a.Reply(t.Context(), core.FromString("q"), "user")
	assert.Equal(t, []string{"from afar"}, testutil.MessageTexts(cont))
	testutil.RequireReturn(t, cont, "user", "far")
	d.AssertExpectations(t)
}

func TestNewRemote_TransportFailure(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "websocket", "far", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, "transport failure: connection refused").Once()

	cont := NewRemote("far", "websocket", nil, d).Reply(t.Context(), core.FromString("q"), "user")

	ret := testutil.RequireReturn(t, cont, "user", "far")
	assert.Equal(t, "transport failure: connection refused", ret.Error)
	assert.Equal(t, 1, cont.Len())

	noTransport := NewRemote("far", "http", nil, nil).Reply(t.Context(), core.FromString("q"), "user")
	_, errText, _ := noTransport.Error()
	assert.Contains(t, errText, core.ErrUnknownProtocol.Error())
}

func TestNewRemote_UnwrapsRemoteReturn(t *testing.T) {
	remote := core.NewChatHistory(
		core.NewAssistantMessage("far", "partial"),
		core.NewReturn("user", "far", "answer failure: quota"),
	)
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, "http", "far", mock.Anything, mock.Anything, mock.Anything).
		Return(remote, "").Once()

	cont := NewRemote("far", "http", nil, d).Reply(t.Context(), core.FromString("q"), "user")

	require.Equal(t, 2, cont.Len())
	assert.Equal(t, []string{"partial"}, testutil.MessageTexts(cont))
	ret := testutil.RequireReturn(t, cont, "user", "far")
	assert.Equal(t, "answer failure: quota", ret.Error)
}

func TestReplyTo_UnknownAgent(t *testing.T) {
	dir := core.NewDirectory(NewFixedAgent("kb", "hi"))
	log := core.FromString("q")

	cont := ReplyTo(t.Context(), dir, "nope", log, "")

	require.Equal(t, 2, log.Len())
	ret := testutil.RequireReturn(t, cont, core.UserOriginator, "nope")
	assert.Contains(t, ret.Error, core.ErrUnknownAgent.Error())
	assert.Equal(t, 1, cont.Len())

	cont = ReplyTo(t.Context(), dir, "kb", core.FromString("q"), "")
	assert.Equal(t, []string{"hi"}, testutil.MessageTexts(cont))
}
