// Package match scores named texts against a query. The router uses it to
// pick the child agents whose descriptions best match a question.
package match

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/knowledgenet/embedding"
)

// Scored is a name with its relevance score. Higher is better.
type Scored struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Matcher returns up to k names ranked by relevance to query.
type Matcher interface {
	SearchWithScore(ctx context.Context, query string, k int) ([]Scored, error)
}

// IndexBuilder builds a Matcher over named texts.
type IndexBuilder func(ctx context.Context, texts map[string]string) (Matcher, error)

// Rank sorts by descending score, breaking ties by name, and truncates to k
// when k is positive. The input is not modified.
func Rank(scored []Scored, k int) []Scored {
	ranked := slices.Clone(scored)
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Best returns the names of the top k entries.
func Best(scored []Scored, k int) []string {
	ranked := Rank(scored, k)
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.Name
	}
	return names
}

// BetterThan returns the top k names ranked before baseline, stopping at the
// first entry scoring no better than the baseline. If baseline is not among
// the top k, all top k names are returned.
func BetterThan(scored []Scored, baseline string, k int) []string {
	ranked := Rank(scored, k)
	idx := slices.IndexFunc(ranked, func(s Scored) bool { return s.Name == baseline })
	if idx < 0 {
		return Best(ranked, 0)
	}
	base := ranked[idx].Score
	var names []string
	for _, s := range ranked {
		if s.Name == baseline || s.Score <= base {
			break
		}
		names = append(names, s.Name)
	}
	return names
}

// BetterThanOrEqual is BetterThan with the baseline itself appended when it
// is among the top k.
func BetterThanOrEqual(scored []Scored, baseline string, k int) []string {
	names := BetterThan(scored, baseline, k)
	if slices.ContainsFunc(Rank(scored, k), func(s Scored) bool { return s.Name == baseline }) {
		names = append(names, baseline)
	}
	return names
}

// BaselineOrBetter returns BetterThan, or just the baseline when nothing
// beats it.
func BaselineOrBetter(scored []Scored, baseline string, k int) []string {
	if names := BetterThan(scored, baseline, k); len(names) > 0 {
		return names
	}
	return []string{baseline}
}

// StaticMatcher returns fixed scores regardless of the query.
type StaticMatcher map[string]float64

// SearchWithScore implements Matcher.
func (m StaticMatcher) SearchWithScore(_ context.Context, _ string, k int) ([]Scored, error) {
	scored := make([]Scored, 0, len(m))
	for name, s := range m {
		scored = append(scored, Scored{Name: name, Score: s})
	}
	return Rank(scored, k), nil
}

// EmbeddingMatcher ranks named texts by cosine similarity of their
// embeddings to the query embedding.
type EmbeddingMatcher struct {
	embedder embedding.Embedder
	texts    map[string]string

	once  sync.Once
	names []string
	vecs  [][]float64
	err   error
}

// NewEmbeddingMatcher creates a matcher over texts. Texts are embedded on
// first search.
func NewEmbeddingMatcher(texts map[string]string, e embedding.Embedder) *EmbeddingMatcher {
	return &EmbeddingMatcher{embedder: e, texts: texts}
}

// EmbeddingIndex returns an IndexBuilder that embeds texts eagerly with e.
func EmbeddingIndex(e embedding.Embedder) IndexBuilder {
	return func(ctx context.Context, texts map[string]string) (Matcher, error) {
		m := NewEmbeddingMatcher(texts, e)
		if err := m.prepare(ctx); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (m *EmbeddingMatcher) prepare(ctx context.Context) error {
	m.once.Do(func() {
		names := make([]string, 0, len(m.texts))
		for n := range m.texts {
			names = append(names, n)
		}
		slices.Sort(names)
		docs := make([]string, len(names))
		for i, n := range names {
			docs[i] = m.texts[n]
		}
		vecs, err := m.embedder.Embed(ctx, docs)
		if err != nil {
			m.err = fmt.Errorf("embed descriptions: %w", err)
			return
		}
		if len(vecs) != len(docs) {
			m.err = fmt.Errorf("embed descriptions: got %d vectors for %d texts", len(vecs), len(docs))
			return
		}
		m.names, m.vecs = names, vecs
	})
	return m.err
}

// SearchWithScore implements Matcher.
func (m *EmbeddingMatcher) SearchWithScore(ctx context.Context, query string, k int) ([]Scored, error) {
	if err := m.prepare(ctx); err != nil {
		return nil, err
	}
	if len(m.names) == 0 {
		return nil, nil
	}
	q, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(q))
	}
	scored := make([]Scored, len(m.names))
	for i, n := range m.names {
		scored[i] = Scored{Name: n, Score: embedding.Cosine(q[0], m.vecs[i])}
	}
	return Rank(scored, k), nil
}
