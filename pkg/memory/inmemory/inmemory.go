// Package inmemory provides a process-local implementation of memory.Store.
//
// Turns are kept in a map keyed by conversation ID and are lost on restart.
// There is no eviction; the store grows with every appended turn.
package inmemory

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
)

// Store implements memory.Store using in-process data structures.
type Store struct {
	mu sync.RWMutex

	// turns maps conversation ID -> ordered turns.
	turns map[string][]llm.Message
}

var _ memory.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		turns: make(map[string][]llm.Message),
	}
}

// PerRequest returns a Factory that creates a fresh, empty store for every
// request, so nothing is remembered between requests.
func PerRequest() memory.Factory {
	return func() memory.Store { return New() }
}

func (s *Store) Retrieve(_ context.Context, conversationID string, lastN int) ([]llm.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := memory.Tail(s.turns[conversationID], lastN)

	// Return a copy to avoid callers mutating internal state.
	result := make([]llm.Message, len(turns))
	copy(result, turns)

	return result, nil
}

func (s *Store) Append(_ context.Context, conversationID string, turns ...llm.Message) error {
	if len(turns) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[conversationID] = append(s.turns[conversationID], turns...)
	return nil
}

func (s *Store) Clear(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, conversationID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
