package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/memory"
)

// RetrieveCall captures the arguments of a single Store.Retrieve call.
type RetrieveCall struct {
	ConversationID string
	LastN          int
}

// MockStore is a memory.Store that records calls and keeps turns in a map.
type MockStore struct {
	// FailRetrieve causes Retrieve to return memory.ErrNotConfigured.
	FailRetrieve bool

	// FailAppend causes Append to return memory.ErrNotConfigured.
	FailAppend bool

	mu            sync.Mutex
	turns         map[string][]llm.Message
	retrieveCalls []RetrieveCall
	closed        bool
}

var _ memory.Store = (*MockStore)(nil)

// NewMockStore creates a new, empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{turns: make(map[string][]llm.Message)}
}

func (m *MockStore) Retrieve(_ context.Context, conversationID string, lastN int) ([]llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retrieveCalls = append(m.retrieveCalls, RetrieveCall{ConversationID: conversationID, LastN: lastN})
	if m.FailRetrieve {
		return nil, memory.ErrNotConfigured
	}

	turns := m.turns[conversationID]
	if lastN > 0 && len(turns) > lastN {
		turns = turns[len(turns)-lastN:]
	}
	out := make([]llm.Message, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MockStore) Append(_ context.Context, conversationID string, turns ...llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend {
		return memory.ErrNotConfigured
	}
	m.turns[conversationID] = append(m.turns[conversationID], turns...)
	return nil
}

func (m *MockStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, conversationID)
	return nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// RetrieveCalls returns a copy of every Retrieve call seen so far.
func (m *MockStore) RetrieveCalls() []RetrieveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RetrieveCall, len(m.retrieveCalls))
	copy(out, m.retrieveCalls)
	return out
}

// Turns returns a copy of the stored turns for a conversation.
func (m *MockStore) Turns(conversationID string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Message, len(m.turns[conversationID]))
	copy(out, m.turns[conversationID])
	return out
}

// Closed reports whether Close has been called.
func (m *MockStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
