package testutil

import (
	"time"

	"github.com/hupe1980/knowledgenet/core"
)

// HistoryBuilder provides a fluent helper for constructing chat histories in tests.
// Example:
//
//	h := testutil.NewHistoryBuilder().User("hi").Assistant("kb", "hello").Build()
type HistoryBuilder struct {
	events []core.Event
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user message (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder {
	b.events = append(b.events, core.NewUserMessage(text))
	return b
}

// Assistant appends an assistant message from originator (chainable).
func (b *HistoryBuilder) Assistant(originator, text string) *HistoryBuilder {
	b.events = append(b.events, core.NewAssistantMessage(originator, text))
	return b
}

// System appends a system message (chainable).
func (b *HistoryBuilder) System(originator, text string) *HistoryBuilder {
	b.events = append(b.events, core.NewSystemMessage(originator, text))
	return b
}

// Hidden appends a hidden assistant message (chainable).
func (b *HistoryBuilder) Hidden(originator, text string) *HistoryBuilder {
	b.events = append(b.events, core.NewHiddenMessage(originator, core.RoleAssistant, text))
	return b
}

// Summary appends a standalone-question summary (chainable).
func (b *HistoryBuilder) Summary(originator, text string) *HistoryBuilder {
	b.events = append(b.events, core.NewSummary(originator, core.SummaryStandaloneQuestion, text))
	return b
}

// Call appends a call marker (chainable).
func (b *HistoryBuilder) Call(caller, called string, timeout time.Duration) *HistoryBuilder {
	b.events = append(b.events, core.NewCall(caller, called, timeout))
	return b
}

// Return appends a return marker (chainable).
func (b *HistoryBuilder) Return(caller, called, errText string) *HistoryBuilder {
	b.events = append(b.events, core.NewReturn(caller, called, errText))
	return b
}

// Build returns a new history holding the collected events.
func (b *HistoryBuilder) Build() *core.ChatHistory {
	return core.NewChatHistory(b.events...)
}
