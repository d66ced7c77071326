package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/core"
)

// RequireReturn asserts that h ends with a ReturnEvent for (caller, called)
// and returns it.
func RequireReturn(t testing.TB, h *core.ChatHistory, caller, called string) core.ReturnEvent {
	t.Helper()
	last, ok := h.LastEvent()
	require.True(t, ok, "history is empty")
	ret, ok := last.(core.ReturnEvent)
	require.True(t, ok, "trailing event is %T, not a return", last)
	assert.Equal(t, caller, ret.Caller)
	assert.Equal(t, called, ret.Called)
	return ret
}

// MessageTexts returns the visible message texts of h.
func MessageTexts(h *core.ChatHistory) []string {
	var texts []string
	for _, m := range h.Messages(false) {
		texts = append(texts, m.MessageText)
	}
	return texts
}
