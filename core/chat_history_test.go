package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestChatHistory_AppendExtendCopy(t *testing.T) {
	h := FromString("hi")
	h.Append(NewAssistantMessage("kb", "hello"))

	other := NewChatHistory(NewSystemMessage("kb", "note"))
	h.Extend(other)
	h.Extend(nil)
	assert.Equal(t, 3, h.Len())

	c := h.Copy()
	assert.Equal(t, h.Events(), c.Events())

	c.Append(NewUserMessage("more"))
	c.Extend(other)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 5, c.Len())
}

func TestChatHistory_Messages(t *testing.T) {
	h := NewChatHistory(
		NewUserMessage("q"),
		NewCall("user", "kb", time.Second),
		NewHiddenMessage("kb", RoleAssistant, "debug"),
		NewAssistantMessage("kb", "a"),
		NewReturn("user", "kb", ""),
	)

	visible := h.Messages(false)
	require.Len(t, visible, 2)
	assert.Equal(t, "q", visible[0].MessageText)
	assert.Equal(t, "a", visible[1].MessageText)
	assert.Len(t, h.Messages(true), 3)

	text, ok := h.LastMessageText()
	require.True(t, ok)
	assert.Equal(t, "a", text)
}

func TestChatHistory_LastEventOnEmpty(t *testing.T) {
	h := NewChatHistory()
	_, ok := h.LastEvent()
	assert.False(t, ok)
	_, ok = h.LatestQuestion()
	assert.False(t, ok)
	assert.False(t, h.HasSummary(SummaryStandaloneQuestion))
	assert.False(t, h.HasMessages())
}

func TestChatHistory_SummaryAndLatestQuestion(t *testing.T) {
	h := NewChatHistory(NewUserMessage("what about cats?"))
	q, ok := h.LatestQuestion()
	require.True(t, ok)
	assert.Equal(t, "what about cats?", q)
	assert.False(t, h.HasSummary(SummaryStandaloneQuestion))

	h.Append(NewSummary("router", SummaryStandaloneQuestion, "What do cats eat?"))
	assert.True(t, h.HasSummary(SummaryStandaloneQuestion))
	q, _ = h.LatestQuestion()
	assert.Equal(t, "What do cats eat?", q)

	// Call markers do not hide the summary.
	h.WithCallEvent("router", "zoology", 0)
	assert.True(t, h.HasSummary(SummaryStandaloneQuestion))
	q, _ = h.LatestQuestion()
	assert.Equal(t, "What do cats eat?", q)

	// A later message does.
	h.Append(NewUserMessage("and dogs?"))
	assert.False(t, h.HasSummary(SummaryStandaloneQuestion))
	q, _ = h.LatestQuestion()
	assert.Equal(t, "and dogs?", q)
}

func TestChatHistory_WithCallAndReturn(t *testing.T) {
	h := FromString("hi").WithCallEvent("user", "kb", 30*time.Second)
	last, ok := h.LastEvent()
	require.True(t, ok)
	call, ok := last.(CallEvent)
	require.True(t, ok)
	assert.Equal(t, "user", call.Caller)
	assert.Equal(t, "kb", call.Called)
	assert.Equal(t, 30, call.TimeOutSeconds)
	assert.Equal(t, 30*time.Second, call.Timeout())

	cont := NewChatHistory(NewAssistantMessage("kb", "hello"))
	_, err := cont.WithReturnEvent(h, "")
	require.NoError(t, err)

	last, _ = cont.LastEvent()
	ret, ok := last.(ReturnEvent)
	require.True(t, ok)
	assert.Equal(t, "user", ret.Caller)
	assert.Equal(t, "kb", ret.Called)
	assert.False(t, cont.ReturnedError())
}

func TestNewCall_TimeoutSeconds(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    int
	}{
		{name: "unbounded", timeout: 0, want: 0},
		{name: "negative", timeout: -time.Second, want: 0},
		{name: "sub-second", timeout: 500 * time.Millisecond, want: 1},
		{name: "whole", timeout: 2 * time.Second, want: 2},
		{name: "fraction", timeout: 2*time.Second + time.Millisecond, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := NewCall("user", "kb", tt.timeout)
			assert.Equal(t, tt.want, call.TimeOutSeconds)
		})
	}

	b, err := MarshalEvent(NewCall("user", "kb", 500*time.Millisecond))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"time_out_seconds":1`)
}

func TestChatHistory_WithReturnEventMismatch(t *testing.T) {
	matching := FromString("hi")
	cont := NewChatHistory()
	_, err := cont.WithReturnEvent(matching, "")
	require.ErrorIs(t, err, ErrProtocolMismatch)
	assert.Equal(t, 0, cont.Len())

	_, err = cont.WithReturnEvent(NewChatHistory(), "")
	require.ErrorIs(t, err, ErrProtocolMismatch)
}

func TestChatHistory_Error(t *testing.T) {
	h := NewChatHistory(NewReturn("user", "B", "unknown agent"))
	called, text, ok := h.Error()
	require.True(t, ok)
	assert.Equal(t, "B", called)
	assert.Equal(t, "unknown agent", text)

	h.Append(NewAssistantMessage("A", "later"))
	assert.False(t, h.ReturnedError())
}

func TestChatHistory_UnmarshalDefaults(t *testing.T) {
	var h ChatHistory
	err := json.Unmarshal([]byte(`[
		{"event_type":"message","message_text":"hi"},
		{"event_type":"summary","summary_text":"Q?"},
		{"event_type":"call","called":"kb","time_stamp":"2024-05-01T10:00:00.123456+02:00","time_out_seconds":60},
		{"event_type":"return","called":"kb"}
	]`), &h)
	require.NoError(t, err)

	events := h.Events()
	require.Len(t, events, 4)
	assert.Equal(t, MessageEvent{Originator: "user", Role: RoleUser, MessageText: "hi"}, events[0])
	assert.Equal(t, SummaryEvent{Originator: "user", Role: RoleAssistant, SummaryType: SummaryStandaloneQuestion, SummaryText: "Q?"}, events[1])

	call := events[2].(CallEvent)
	assert.Equal(t, "user", call.Caller)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 123456000, time.UTC), call.TimeStamp)

	ret := events[3].(ReturnEvent)
	assert.Equal(t, "", ret.Caller)
	assert.True(t, ret.TimeStamp.IsZero())
}

func TestChatHistory_UnmarshalRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not an array", `{"event_type":"message"}`},
		{"missing event_type", `[{"message_text":"hi"}]`},
		{"unknown event_type", `[{"event_type":"shout","message_text":"hi"}]`},
		{"message without text", `[{"event_type":"message"}]`},
		{"unknown role", `[{"event_type":"message","role":"robot","message_text":"hi"}]`},
		{"unknown summary type", `[{"event_type":"summary","summary_type":"digest","summary_text":"x"}]`},
		{"call without called", `[{"event_type":"call"}]`},
		{"bad time stamp", `[{"event_type":"return","called":"kb","time_stamp":"yesterday"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h ChatHistory
			err := json.Unmarshal([]byte(tt.body), &h)
			require.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestUnmarshalEvent_NaiveTimeStamp(t *testing.T) {
	e, err := UnmarshalEvent([]byte(`{"event_type":"call","called":"kb","time_stamp":"2024-05-01T10:00:00.5"}`))
	require.NoError(t, err)
	call, ok := e.(CallEvent)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 500_000_000, time.UTC), call.TimeStamp)
	assert.Equal(t, "user", call.Caller)
}

func TestMarshalEvent_Discriminator(t *testing.T) {
	b, err := MarshalEvent(NewUserMessage("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_type":"message","originator":"user","role":"user","message_text":"hi","hidden":false}`, string(b))

	b, err = MarshalEvent(ReturnEvent{Caller: "user", Called: "kb", TimeStamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Error: "boom"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_type":"return","caller":"user","called":"kb","time_stamp":"2024-01-02T03:04:05Z","error":"boom"}`, string(b))
}

func TestDecodeExchange(t *testing.T) {
	x, err := DecodeExchange(strings.NewReader(`{"knowledgebase":"A","chat_history":[{"event_type":"message","originator":"user","role":"user","message_text":"hi","hidden":false}]}`))
	require.NoError(t, err)
	assert.Equal(t, "A", x.Knowledgebase)
	assert.Equal(t, 1, x.ChatHistory.Len())

	for _, body := range []string{
		`not json`,
		`{"chat_history":[]}`,
		`{"knowledgebase":"A"}`,
		`{"knowledgebase":"A","chat_history":null}`,
		`{"knowledgebase":"A","chat_history":[{"event_type":"nope"}]}`,
	} {
		_, err := DecodeExchange(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrBadRequest, body)
	}

	cont, err := DecodeContinuation(strings.NewReader(`{"chat_history":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, cont.Len())
}

func TestCallDepth(t *testing.T) {
	ctx := t.Context()
	assert.Equal(t, 0, CallDepth(ctx))

	ctx, err := EnterCall(ctx, 2)
	require.NoError(t, err)
	ctx, err = EnterCall(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, CallDepth(ctx))

	_, err = EnterCall(ctx, 2)
	require.ErrorIs(t, err, ErrCallDepthExceeded)

	_, err = EnterCall(ctx, 0)
	require.NoError(t, err)
}

func genEvent() *rapid.Generator[Event] {
	return rapid.Custom(func(t *rapid.T) Event {
		ts := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "sec"), rapid.Int64Range(0, 999_999_999).Draw(t, "nsec")).UTC()
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			return MessageEvent{
				Originator:  rapid.String().Draw(t, "originator"),
				Role:        rapid.SampledFrom([]Role{RoleSystem, RoleUser, RoleAssistant}).Draw(t, "role"),
				MessageText: rapid.String().Draw(t, "text"),
				Hidden:      rapid.Bool().Draw(t, "hidden"),
			}
		case 1:
			return SummaryEvent{
				Originator:  rapid.String().Draw(t, "originator"),
				Role:        rapid.SampledFrom([]Role{RoleSystem, RoleUser, RoleAssistant}).Draw(t, "role"),
				SummaryType: SummaryStandaloneQuestion,
				SummaryText: rapid.String().Draw(t, "text"),
				Hidden:      rapid.Bool().Draw(t, "hidden"),
			}
		case 2:
			return CallEvent{
				Caller:         rapid.String().Draw(t, "caller"),
				Called:         rapid.String().Draw(t, "called"),
				TimeStamp:      ts,
				TimeOutSeconds: rapid.IntRange(0, 3600).Draw(t, "timeout"),
			}
		default:
			return ReturnEvent{
				Caller:    rapid.String().Draw(t, "caller"),
				Called:    rapid.String().Draw(t, "called"),
				TimeStamp: ts,
				Error:     rapid.String().Draw(t, "error"),
			}
		}
	})
}

func genChatHistory() *rapid.Generator[*ChatHistory] {
	return rapid.Custom(func(t *rapid.T) *ChatHistory {
		return NewChatHistory(rapid.SliceOfN(genEvent(), 0, 20).Draw(t, "events")...)
	})
}

func TestProperty_ChatHistory_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := genChatHistory().Draw(rt, "history")

		data, err := json.Marshal(h)
		require.NoError(rt, err)

		var decoded ChatHistory
		require.NoError(rt, json.Unmarshal(data, &decoded))
		assert.Equal(rt, h.Events(), decoded.Events())
	})
}

func TestProperty_ChatHistory_CopyIsolation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := genChatHistory().Draw(rt, "history")
		before := h.Events()

		c := h.Copy()
		assert.Equal(rt, before, c.Events())

		c.Append(genEvent().Draw(rt, "extra"))
		c.Extend(genChatHistory().Draw(rt, "tail"))
		assert.Equal(rt, before, h.Events())
	})
}
