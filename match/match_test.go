package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knowledgenet/embedding"
)

var example = []Scored{
	{Name: "general", Score: 0.50},
	{Name: "botany", Score: 0.81},
	{Name: "zoology", Score: 0.77},
	{Name: "physics", Score: 0.20},
}

func TestBaselineOrBetter(t *testing.T) {
	tests := []struct {
		name   string
		scored []Scored
		k      int
		want   []string
	}{
		{"beats baseline", example, 3, []string{"botany", "zoology"}},
		{"bounded by k", example, 1, []string{"botany"}},
		{"baseline outside top k", []Scored{{"a", 0.9}, {"b", 0.8}, {"general", 0.1}}, 2, []string{"a", "b"}},
		{"nothing beats baseline", []Scored{{"general", 0.9}, {"a", 0.5}}, 4, []string{"general"}},
		{"tie with baseline stops", []Scored{{"a", 0.9}, {"general", 0.5}, {"b", 0.5}}, 4, []string{"a"}},
		{"empty", nil, 4, []string{"general"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaselineOrBetter(tt.scored, "general", tt.k))
		})
	}
}

func TestBestAndBetterThan(t *testing.T) {
	assert.Equal(t, []string{"botany", "zoology", "general"}, Best(example, 3))
	assert.Empty(t, BetterThan([]Scored{{"general", 1}}, "general", 3))
	assert.Equal(t, []string{"botany", "zoology", "general"}, BetterThanOrEqual(example, "general", 3))
	assert.Equal(t, []string{"botany"}, BetterThanOrEqual(example, "general", 1))
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	in := []Scored{{"b", 1}, {"a", 1}, {"c", 2}}
	out := Rank(in, 0)
	assert.Equal(t, []Scored{{"c", 2}, {"a", 1}, {"b", 1}}, out)
	assert.Equal(t, "b", in[0].Name)
}

func TestStaticMatcher(t *testing.T) {
	m := StaticMatcher{"general": 0.5, "botany": 0.81}
	got, err := m.SearchWithScore(t.Context(), "anything", 4)
	require.NoError(t, err)
	assert.Equal(t, []Scored{{"botany", 0.81}, {"general", 0.5}}, got)
}

func TestEmbeddingMatcher(t *testing.T) {
	build := EmbeddingIndex(embedding.NewHashEmbedder())
	m, err := build(t.Context(), map[string]string{
		"botany":  "plants flowers trees leaves botany",
		"zoology": "animals cats dogs birds zoology",
		"general": "general questions about anything",
	})
	require.NoError(t, err)

	got, err := m.SearchWithScore(t.Context(), "which flowers grow under trees", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "botany", got[0].Name)
	assert.Greater(t, got[0].Score, got[1].Score)
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("offline")
}

func TestEmbeddingMatcher_Error(t *testing.T) {
	_, err := EmbeddingIndex(failingEmbedder{})(t.Context(), map[string]string{"a": "x"})
	assert.Error(t, err)

	m := NewEmbeddingMatcher(map[string]string{"a": "x"}, failingEmbedder{})
	_, err = m.SearchWithScore(t.Context(), "q", 1)
	assert.Error(t, err)
}

type shortEmbedder struct{}

func (shortEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return [][]float64{{1, 0}}, nil
}

func TestEmbeddingMatcher_VectorCountMismatch(t *testing.T) {
	texts := map[string]string{"a": "x", "b": "y", "c": "z"}

	_, err := EmbeddingIndex(shortEmbedder{})(t.Context(), texts)
	assert.ErrorContains(t, err, "got 1 vectors for 3 texts")

	m := NewEmbeddingMatcher(texts, shortEmbedder{})
	require.NotPanics(t, func() {
		_, err = m.SearchWithScore(t.Context(), "q", 2)
	})
	assert.ErrorContains(t, err, "got 1 vectors for 3 texts")
}
