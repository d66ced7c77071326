package summarize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/internal/testutil"
	"github.com/hupe1980/knowledgenet/model"
)

func TestMakeStandaloneQuestion_SingleMessage(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	s := New(m)

	q, err := s.MakeStandaloneQuestion(t.Context(), core.FromString("What do cats eat?"))
	require.NoError(t, err)
	assert.Equal(t, "What do cats eat?", q)
	assert.Empty(t, m.Requests())
}

func TestMakeStandaloneQuestion_UsesModel(t *testing.T) {
	h := testutil.NewHistoryBuilder().
		User("Tell me about cats.").
		Assistant("kb", "Cats are mammals.").
		User("What do they eat?").
		Build()

	m := model.NewMockModel("mock", "mock")
	s := New(m, func(o *Options) { o.Template = "{{.chat_history}}|{{.question}}" })
	m.AddResponse("Human: Tell me about cats.\nAssistant: Cats are mammals.|What do they eat?", "  What do cats eat?\n")

	q, err := s.MakeStandaloneQuestion(t.Context(), h)
	require.NoError(t, err)
	assert.Equal(t, "What do cats eat?", q)
	require.Len(t, m.Requests(), 1)
}

func TestAddSummaryIfMissing(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	s := New(m)

	empty := core.NewChatHistory()
	require.NoError(t, s.AddSummaryIfMissing(t.Context(), empty, "router", core.SummaryStandaloneQuestion))
	assert.Equal(t, 0, empty.Len())

	h := core.FromString("hi")
	require.NoError(t, s.AddSummaryIfMissing(t.Context(), h, "router", core.SummaryStandaloneQuestion))
	require.Equal(t, 2, h.Len())
	assert.True(t, h.HasSummary(core.SummaryStandaloneQuestion))

	last, _ := h.LastEvent()
	assert.Equal(t, "router", last.(core.SummaryEvent).Originator)

	require.NoError(t, s.AddSummaryIfMissing(t.Context(), h, "router", core.SummaryStandaloneQuestion))
	assert.Equal(t, 2, h.Len())
}

func TestSummarizer_Errors(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	s := New(m)

	_, err := s.MakeSummaryOfType(t.Context(), core.FromString("hi"), "digest")
	assert.Error(t, err)

	_, err = s.MakeStandaloneQuestion(t.Context(), core.NewChatHistory())
	assert.ErrorIs(t, err, ErrNoMessages)

	boom := errors.New("boom")
	m.FailWith(boom)
	h := testutil.NewHistoryBuilder().User("a").Assistant("kb", "b").User("c").Build()
	err = s.AddSummaryOfType(t.Context(), h, "router", core.SummaryStandaloneQuestion)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, h.Len())
}
