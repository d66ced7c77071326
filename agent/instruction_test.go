package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/testutil"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(context.Context, *core.ChatHistory) (string, error) {
	return m.text, m.err
}

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	assert.True(t, inst.IsStatic())

	got, err := inst.Resolve(t.Context(), core.NewChatHistory())
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "dynamic"})
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(t.Context(), core.NewChatHistory())
	require.NoError(t, err)
	assert.Equal(t, "dynamic", got)

	failing := NewInstructionFromProvider(mockProvider{err: errors.New("boom")})
	_, err = failing.Resolve(t.Context(), core.NewChatHistory())
	assert.EqualError(t, err, "boom")
}

func TestInstruction_Func(t *testing.T) {
	inst := NewInstructionFromFunc(func(_ context.Context, log *core.ChatHistory) (string, error) {
		text, _ := log.LastMessageText()
		return "echo: " + text, nil
	})

	got, err := inst.Resolve(t.Context(), core.FromString("hi"))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", got)
}

func TestInstruction_Template(t *testing.T) {
	log := testutil.NewHistoryBuilder().
		User("what grows in shade?").
		Summary("router", "Which plants grow in shade?").
		Build()

	inst := NewInstructionFromTemplate("Answer: {{.Question}} ({{len .Messages}} messages)")
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(t.Context(), log)
	require.NoError(t, err)
	assert.Equal(t, "Answer: Which plants grow in shade? (1 messages)", got)
}
