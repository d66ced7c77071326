// Package retrieval provides passage retrieval for retrieval-backed agents.
//
// InMemoryIndex is a process-local index. With an embedder it ranks by
// cosine similarity; without one it falls back to case-insensitive substring
// matching. Swap in a vector database behind Retriever for production use.
package retrieval
