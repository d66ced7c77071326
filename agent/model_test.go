package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/testutil"
	"github.com/hupe1980/knowledgenet/model"
	"github.com/hupe1980/knowledgenet/retrieval"
)

func TestModelAgent_Reply(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("how are you?", "  Fine, thanks.  ")
	a := NewModelAgent("assistant", m, func(o *ModelAgentOptions) {
		o.DisplayName = "Assistant"
		o.EnableStreaming = true
	})

	log := testutil.NewHistoryBuilder().
		User("hi").
		Hidden("router", "internal note").
		Assistant("assistant", "hello").
		User("how are you?").
		Build()
	cont := a.Reply(t.Context(), log, "user")

	assert.Equal(t, []string{"Fine, thanks."}, testutil.MessageTexts(cont))
	testutil.RequireReturn(t, cont, "user", "assistant")

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are Assistant, a helpful AI assistant.", reqs[0].Instructions)
	assert.True(t, reqs[0].Stream)
	assert.Equal(t, []model.Message{
		{Role: core.RoleUser, Text: "hi"},
		{Role: core.RoleAssistant, Text: "hello"},
		{Role: core.RoleUser, Text: "how are you?"},
	}, reqs[0].Messages)
}

func TestModelAgent_HistoryLimitAndInstruction(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	a := NewModelAgent("assistant", m, func(o *ModelAgentOptions) {
		o.MaxHistoryMessages = 1
		o.Instruction = NewInstructionFromTemplate("Answer {{.Question}}")
	})

	cont := a.Reply(t.Context(), testutil.NewHistoryBuilder().User("a").User("b").Build(), "user")
	assert.Equal(t, []string{"Mock response to: b"}, testutil.MessageTexts(cont))

	req := m.Requests()[0]
	assert.Equal(t, "Answer b", req.Instructions)
	assert.Len(t, req.Messages, 1)
}

func TestModelAgent_ModelFailure(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.FailWith(errors.New("rate limited"))
	a := NewModelAgent("assistant", m)

	cont := a.Reply(t.Context(), core.FromString("q"), "user")
	_, errText, ok := cont.Error()
	require.True(t, ok)
	assert.Contains(t, errText, "rate limited")

	empty := a.Reply(t.Context(), core.NewChatHistory(), "user")
	assert.True(t, empty.ReturnedError())
}

func TestRAGAgent_Reply(t *testing.T) {
	idx := retrieval.NewInMemoryIndex(nil)
	require.NoError(t, idx.Add(t.Context(),
		retrieval.Passage{Content: "Ferns grow in shade."},
		retrieval.Passage{Content: "Cacti grow in deserts."},
	))
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("shade", "Ferns.")

	a := NewRAGAgent("plants", idx, m, func(o *RAGAgentOptions) { o.K = 1 })
	cont := a.Reply(t.Context(), core.FromString("shade"), "user")

	assert.Equal(t, []string{"Ferns."}, testutil.MessageTexts(cont))
	req := m.Requests()[0]
	assert.Contains(t, req.Instructions, "Use the following quotes")
	assert.Contains(t, req.Instructions, "Ferns grow in shade.")
	assert.NotContains(t, req.Instructions, "Cacti")
}

type fixedCondenser string

func (c fixedCondenser) MakeStandaloneQuestion(_ context.Context, _ *core.ChatHistory) (string, error) {
	return string(c), nil
}

func TestRAGAgent_Condenser(t *testing.T) {
	idx := retrieval.NewInMemoryIndex(nil)
	require.NoError(t, idx.Add(t.Context(), retrieval.Passage{Content: "deserts are dry"}))
	m := model.NewMockModel("mock", "mock")

	a := NewRAGAgent("plants", idx, m, func(o *RAGAgentOptions) { o.Condenser = fixedCondenser("deserts") })
	cont := a.Reply(t.Context(), testutil.NewHistoryBuilder().User("tell me about deserts").User("are they dry?").Build(), "user")

	assert.Equal(t, []string{"Mock response to: deserts"}, testutil.MessageTexts(cont))
	assert.Contains(t, m.Requests()[0].Instructions, "deserts are dry")
}
