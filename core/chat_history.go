package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// ChatHistory is the ordered, append-only event log exchanged between a
// caller and an agent.
//
// A ChatHistory is owned by one call frame at a time and is not safe for
// concurrent mutation. Callers hand a callee a Copy, never the original.
type ChatHistory struct {
	events []Event
}

// NewChatHistory creates a log holding the given events in order.
func NewChatHistory(events ...Event) *ChatHistory {
	return &ChatHistory{events: slices.Clone(events)}
}

// FromString creates a log holding a single user message.
func FromString(text string) *ChatHistory {
	return NewChatHistory(NewUserMessage(text))
}

// Append adds an event to the end of the log.
func (h *ChatHistory) Append(e Event) {
	h.events = append(h.events, e)
}

// Extend appends all events of other, in order.
func (h *ChatHistory) Extend(other *ChatHistory) {
	if other == nil {
		return
	}
	h.events = append(h.events, other.events...)
}

// Copy returns an independent copy. Events are plain values without shared
// references, so duplicating the slice is a deep copy.
func (h *ChatHistory) Copy() *ChatHistory {
	if h == nil {
		return NewChatHistory()
	}
	return &ChatHistory{events: slices.Clone(h.events)}
}

// Events returns a copy of the event slice. The result is never nil.
func (h *ChatHistory) Events() []Event {
	if h == nil {
		return []Event{}
	}
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Len returns the number of events.
func (h *ChatHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.events)
}

// Messages returns the message events in order, optionally including hidden ones.
func (h *ChatHistory) Messages(includeHidden bool) []MessageEvent {
	if h == nil {
		return nil
	}
	var res []MessageEvent
	for _, e := range h.events {
		if m, ok := e.(MessageEvent); ok && (includeHidden || !m.Hidden) {
			res = append(res, m)
		}
	}
	return res
}

// HasMessages reports whether the log holds at least one visible message.
func (h *ChatHistory) HasMessages() bool {
	return len(h.Messages(false)) > 0
}

// LastEvent returns the most recent event.
func (h *ChatHistory) LastEvent() (Event, bool) {
	if h.Len() == 0 {
		return nil, false
	}
	return h.events[len(h.events)-1], true
}

// LastMessageText returns the text of the latest visible message.
func (h *ChatHistory) LastMessageText() (string, bool) {
	msgs := h.Messages(false)
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[len(msgs)-1].MessageText, true
}

// HasSummary reports whether a summary of the given kind follows the latest
// message. Call and return markers in between are skipped.
func (h *ChatHistory) HasSummary(kind SummaryKind) bool {
	_, ok := h.trailingSummary(kind)
	return ok
}

// LatestQuestion returns the effective question: the text of a standalone
// question summary following the latest message if present, else the latest
// visible message.
func (h *ChatHistory) LatestQuestion() (string, bool) {
	if s, ok := h.trailingSummary(SummaryStandaloneQuestion); ok {
		return s.SummaryText, true
	}
	return h.LastMessageText()
}

func (h *ChatHistory) trailingSummary(kind SummaryKind) (SummaryEvent, bool) {
	if h == nil {
		return SummaryEvent{}, false
	}
	for i := len(h.events) - 1; i >= 0; i-- {
		switch e := h.events[i].(type) {
		case SummaryEvent:
			if e.SummaryType == kind {
				return e, true
			}
		case MessageEvent:
			return SummaryEvent{}, false
		}
	}
	return SummaryEvent{}, false
}

// WithCallEvent appends a call marker and returns the log for chaining.
func (h *ChatHistory) WithCallEvent(caller, called string, timeout time.Duration) *ChatHistory {
	h.Append(NewCall(caller, called, timeout))
	return h
}

// WithReturnEvent appends a return marker whose caller and called fields are
// taken from the trailing CallEvent of matching. It fails with
// ErrProtocolMismatch if matching does not end with a call.
func (h *ChatHistory) WithReturnEvent(matching *ChatHistory, errText string) (*ChatHistory, error) {
	last, ok := matching.LastEvent()
	if !ok {
		return h, fmt.Errorf("%w: matching log is empty", ErrProtocolMismatch)
	}
	call, ok := last.(CallEvent)
	if !ok {
		return h, fmt.Errorf("%w: trailing event is %s, not call", ErrProtocolMismatch, last.EventType())
	}
	h.Append(NewReturn(call.Caller, call.Called, errText))
	return h, nil
}

// ReturnedError reports whether the log ends with a failed return.
func (h *ChatHistory) ReturnedError() bool {
	_, _, ok := h.Error()
	return ok
}

// Error returns the called agent and error text of a trailing failed return.
func (h *ChatHistory) Error() (called, errText string, ok bool) {
	last, found := h.LastEvent()
	if !found {
		return "", "", false
	}
	r, isReturn := last.(ReturnEvent)
	if !isReturn || !r.Failed() {
		return "", "", false
	}
	return r.Called, r.Error, true
}

// MarshalJSON encodes the log as an array of event records.
func (h *ChatHistory) MarshalJSON() ([]byte, error) {
	records := make([]json.RawMessage, 0, h.Len())
	for _, e := range h.Events() {
		b, err := MarshalEvent(e)
		if err != nil {
			return nil, err
		}
		records = append(records, b)
	}
	return json.Marshal(records)
}

// UnmarshalJSON decodes an array of event records, replacing the log's content.
func (h *ChatHistory) UnmarshalJSON(data []byte) error {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: chat history must be an array: %v", ErrInvalidEvent, err)
	}
	events := make([]Event, 0, len(records))
	for i, r := range records {
		e, err := UnmarshalEvent(r)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, e)
	}
	h.events = events
	return nil
}
