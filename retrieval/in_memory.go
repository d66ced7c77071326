package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/knowledgenet/embedding"
	"github.com/hupe1980/knowledgenet/match"
)

// Passage is a retrieved text with its relevance score and metadata.
type Passage struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}

// Retriever returns the k passages most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

type storedPassage struct {
	Passage
	vec []float64
}

// InMemoryIndex is a naive process-local Retriever.
//
// Concurrency: protected by RWMutex.
type InMemoryIndex struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	passages []storedPassage
}

var _ Retriever = (*InMemoryIndex)(nil)

// NewInMemoryIndex creates an index. A nil embedder selects substring matching.
func NewInMemoryIndex(e embedding.Embedder) *InMemoryIndex {
	return &InMemoryIndex{embedder: e}
}

// Len returns the number of stored passages.
func (x *InMemoryIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.passages)
}

// Add stores passages, embedding them when the index has an embedder.
// Passages without an ID get a simple incremental one.
func (x *InMemoryIndex) Add(ctx context.Context, passages ...Passage) error {
	var vecs [][]float64
	if x.embedder != nil && len(passages) > 0 {
		texts := make([]string, len(passages))
		for i, p := range passages {
			texts[i] = p.Content
		}
		var err error
		vecs, err = x.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed passages: %w", err)
		}
		if len(vecs) != len(passages) {
			return fmt.Errorf("embed passages: got %d vectors for %d passages", len(vecs), len(passages))
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for i, p := range passages {
		if p.ID == "" {
			p.ID = fmt.Sprintf("psg_%d", len(x.passages))
		}
		sp := storedPassage{Passage: p}
		if vecs != nil {
			sp.vec = vecs[i]
		}
		x.passages = append(x.passages, sp)
	}
	return nil
}

// AddDocument splits text into passages of at most maxChars and stores them
// with source metadata.
func (x *InMemoryIndex) AddDocument(ctx context.Context, source, text string, maxChars int) error {
	chunks := SplitText(text, maxChars)
	passages := make([]Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = Passage{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Content:  c,
			Metadata: map[string]any{"source": source, "chunk": i},
		}
	}
	return x.Add(ctx, passages...)
}

// AddDocuments loads every .txt and .md file in dir.
func (x *InMemoryIndex) AddDocuments(ctx context.Context, dir string, maxChars int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read document %s: %w", e.Name(), err)
		}
		if err := x.AddDocument(ctx, e.Name(), string(data), maxChars); err != nil {
			return err
		}
	}
	return nil
}

// Retrieve implements Retriever.
func (x *InMemoryIndex) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	x.mu.RLock()
	stored := slices.Clone(x.passages)
	x.mu.RUnlock()

	if x.embedder == nil {
		return substringSearch(stored, query, k), nil
	}
	if len(stored) == 0 {
		return []Passage{}, nil
	}

	q, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(q))
	}

	byID := make(map[string]Passage, len(stored))
	scored := make([]match.Scored, len(stored))
	for i, sp := range stored {
		byID[sp.ID] = sp.Passage
		scored[i] = match.Scored{Name: sp.ID, Score: embedding.Cosine(q[0], sp.vec)}
	}

	ranked := match.Rank(scored, k)
	out := make([]Passage, len(ranked))
	for i, s := range ranked {
		p := byID[s.Name]
		p.Score = s.Score
		p.Metadata = cloneMetadata(p.Metadata)
		out[i] = p
	}
	return out, nil
}

// substringSearch performs a case-insensitive substring match in insertion
// order. Each hit receives a constant score of 1.0.
func substringSearch(stored []storedPassage, query string, k int) []Passage {
	q := strings.ToLower(query)
	results := []Passage{}
	for _, sp := range stored {
		if k > 0 && len(results) >= k {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(sp.Content), q) {
			p := sp.Passage
			p.Score = 1.0
			p.Metadata = cloneMetadata(p.Metadata)
			results = append(results, p)
		}
	}
	return results
}

func cloneMetadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
