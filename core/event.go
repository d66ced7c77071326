package core

import (
	"time"
)

// EventType is the discriminator carried by every serialized event record.
type EventType string

const (
	EventTypeMessage EventType = "message"
	EventTypeSummary EventType = "summary"
	EventTypeCall    EventType = "call"
	EventTypeReturn  EventType = "return"
)

// Role is the conversational role attached to message and summary events.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SummaryKind classifies summary events.
type SummaryKind string

// SummaryStandaloneQuestion is a self-contained restatement of the latest
// question given the full turn history.
const SummaryStandaloneQuestion SummaryKind = "standalone-question"

// UserOriginator is the originator and default caller for events produced
// on behalf of the end user.
const UserOriginator = "user"

// Event is one entry of a ChatHistory. Concrete event types implement the
// unexported isEvent marker enabling a closed set. Events are values and must
// be treated as immutable once appended.
type Event interface {
	EventType() EventType
	isEvent()
}

// MessageEvent is a text message produced by the user or an agent. Hidden
// messages are kept for audit and display but are not shown to agents.
type MessageEvent struct {
	Originator  string `json:"originator"`
	Role        Role   `json:"role"`
	MessageText string `json:"message_text"`
	Hidden      bool   `json:"hidden"`
}

// EventType implements Event.
func (MessageEvent) EventType() EventType { return EventTypeMessage }
func (MessageEvent) isEvent()             {}

// SummaryEvent summarizes the preceding conversation.
type SummaryEvent struct {
	Originator  string      `json:"originator"`
	Role        Role        `json:"role"`
	SummaryType SummaryKind `json:"summary_type"`
	SummaryText string      `json:"summary_text"`
	Hidden      bool        `json:"hidden"`
}

// EventType implements Event.
func (SummaryEvent) EventType() EventType { return EventTypeSummary }
func (SummaryEvent) isEvent()             {}

// CallEvent marks the start of a reply invocation from Caller to Called.
type CallEvent struct {
	Caller         string    `json:"caller"`
	Called         string    `json:"called"`
	TimeStamp      time.Time `json:"time_stamp"`
	TimeOutSeconds int       `json:"time_out_seconds"`
}

// EventType implements Event.
func (CallEvent) EventType() EventType { return EventTypeCall }
func (CallEvent) isEvent()             {}

// Timeout returns the call's budget as a duration. Zero means unbounded.
func (e CallEvent) Timeout() time.Duration {
	return time.Duration(e.TimeOutSeconds) * time.Second
}

// ReturnEvent marks the completion of the invocation started by the most
// recent matching CallEvent. A non-empty Error reports a failed call.
type ReturnEvent struct {
	Caller    string    `json:"caller"`
	Called    string    `json:"called"`
	TimeStamp time.Time `json:"time_stamp"`
	Error     string    `json:"error"`
}

// EventType implements Event.
func (ReturnEvent) EventType() EventType { return EventTypeReturn }
func (ReturnEvent) isEvent()             {}

// Failed reports whether the call ended with an error.
func (e ReturnEvent) Failed() bool { return e.Error != "" }

// NewMessage creates a visible message event.
func NewMessage(originator string, role Role, text string) MessageEvent {
	return MessageEvent{Originator: originator, Role: role, MessageText: text}
}

// NewUserMessage creates a message authored by the end user.
func NewUserMessage(text string) MessageEvent {
	return NewMessage(UserOriginator, RoleUser, text)
}

// NewAssistantMessage creates an assistant message produced by originator.
func NewAssistantMessage(originator, text string) MessageEvent {
	return NewMessage(originator, RoleAssistant, text)
}

// NewSystemMessage creates a system message produced by originator.
func NewSystemMessage(originator, text string) MessageEvent {
	return NewMessage(originator, RoleSystem, text)
}

// NewHiddenMessage creates a message excluded from agent-visible history.
func NewHiddenMessage(originator string, role Role, text string) MessageEvent {
	m := NewMessage(originator, role, text)
	m.Hidden = true
	return m
}

// NewSummary creates an assistant summary event of the given kind.
func NewSummary(originator string, kind SummaryKind, text string) SummaryEvent {
	return SummaryEvent{Originator: originator, Role: RoleAssistant, SummaryType: kind, SummaryText: text}
}

// NewCall creates a call marker stamped with the current time. A positive
// timeout is rounded up to whole seconds so it never reads as unbounded.
func NewCall(caller, called string, timeout time.Duration) CallEvent {
	return CallEvent{Caller: caller, Called: called, TimeStamp: now(), TimeOutSeconds: timeoutSeconds(timeout)}
}

func timeoutSeconds(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Second - 1) / time.Second)
}

// NewReturn creates a return marker stamped with the current time.
func NewReturn(caller, called, errText string) ReturnEvent {
	return ReturnEvent{Caller: caller, Called: called, TimeStamp: now(), Error: errText}
}

// now strips the monotonic reading so stamps compare equal after a round trip.
func now() time.Time { return time.Now().UTC().Round(0) }
