package session

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/knowledgenet/core"
)

// InMemoryStore is a volatile Store keeping transcripts in a process local
// map. Returned logs are copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.ChatHistory
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.ChatHistory)}
}

// Append implements Store.
func (s *InMemoryStore) Append(_ context.Context, sessionID string, log *core.ChatHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		h = core.NewChatHistory()
		s.sessions[sessionID] = h
	}
	h.Extend(log)
	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*core.ChatHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID].Copy(), nil
}

// IDs implements Store.
func (s *InMemoryStore) IDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }
