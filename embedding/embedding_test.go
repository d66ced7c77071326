package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 2}))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"what", "do", "cats", "eat", "in", "2024"}, Tokenize("What do cats eat, in 2024? a"))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder()
	vecs, err := e.Embed(t.Context(), []string{"plants and flowers", "flowers and plants", "stars and galaxies", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	assert.Len(t, vecs[0], DefaultHashDimensions)

	assert.InDelta(t, 1.0, Cosine(vecs[0], vecs[1]), 1e-9)
	assert.Less(t, Cosine(vecs[0], vecs[2]), Cosine(vecs[0], vecs[1]))
	assert.Equal(t, 0.0, Cosine(vecs[0], vecs[3]))

	again, err := e.Embed(t.Context(), []string{"plants and flowers"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again[0])
}
