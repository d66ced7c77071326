// Package embedding turns texts into vectors for semantic matching and
// passage retrieval.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder maps texts to vectors. The result has one vector per input text,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DefaultHashDimensions is the vector size of HashEmbedder.
const DefaultHashDimensions = 512

// HashEmbedder is a deterministic bag-of-words embedder based on feature
// hashing. It needs no network access and serves as the offline default.
type HashEmbedder struct {
	Dimensions int
}

// NewHashEmbedder creates a HashEmbedder with DefaultHashDimensions.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dimensions: DefaultHashDimensions}
}

// Embed implements Embedder.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	dims := h.Dimensions
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, dims)
		for _, tok := range Tokenize(text) {
			f := fnv.New64a()
			_, _ = f.Write([]byte(tok))
			sum := f.Sum64()
			sign := 1.0
			if sum&(1<<63) != 0 {
				sign = -1.0
			}
			vec[sum%uint64(dims)] += sign
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// Tokenize lower-cases text and splits it into letter and digit runs,
// dropping tokens shorter than two runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	toks := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			toks = append(toks, f)
		}
	}
	return toks
}

func normalize(v []float64) {
	var n float64
	for _, x := range v {
		n += x * x
	}
	if n == 0 {
		return
	}
	n = math.Sqrt(n)
	for i := range v {
		v[i] /= n
	}
}
