package agent

import (
	"context"

	"github.com/hupe1980/knowledgenet/core"
)

// DefaultFixedMessage is the reply of a FixedAgent without a configured message.
const DefaultFixedMessage = "Hello world"

// FixedAgent answers every question with the same assistant message.
type FixedAgent struct {
	*BaseAgent
	message string
}

// NewFixedAgent creates a FixedAgent. An empty message selects DefaultFixedMessage.
func NewFixedAgent(id, message string, optFns ...func(o *Options)) *FixedAgent {
	if message == "" {
		message = DefaultFixedMessage
	}
	a := &FixedAgent{message: message}
	a.BaseAgent = NewBaseAgent(id, core.AnswererFunc(a.answer), optFns...)
	return a
}

// Message returns the fixed reply text.
func (a *FixedAgent) Message() string { return a.message }

func (a *FixedAgent) answer(context.Context, *core.ChatHistory) (*core.ChatHistory, error) {
	return core.NewChatHistory(core.NewAssistantMessage(a.ID(), a.message)), nil
}
