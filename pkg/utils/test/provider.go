package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/recall/pkg/llm"
)

// MockProvider is a scripted provider.Provider. ChatStream emits Fragments in
// order; Chat answers with the fragments joined.
type MockProvider struct {
	// Fragments are streamed one chunk each, followed by a done chunk.
	Fragments []string

	// FailBefore is returned before any chunk is sent.
	FailBefore error

	// FailAfter is returned after every fragment has been sent.
	FailAfter error

	mu       sync.Mutex
	requests []*llm.ChatRequest
}

// NewMockProvider creates a provider that streams the given fragments.
func NewMockProvider(fragments ...string) *MockProvider {
	return &MockProvider{Fragments: fragments}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.record(req)
	if m.FailBefore != nil {
		return nil, m.FailBefore
	}
	return &llm.ChatResponse{
		Model:      req.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, strings.Join(m.Fragments, "")),
		Done:       true,
		StopReason: "stop",
	}, nil
}

func (m *MockProvider) ChatStream(ctx context.Context, req *llm.ChatRequest, chunks chan<- llm.StreamChunk) error {
	m.record(req)
	if m.FailBefore != nil {
		return m.FailBefore
	}

	for _, fragment := range m.Fragments {
		select {
		case chunks <- llm.StreamChunk{Model: req.Model, Message: llm.NewTextMessage(llm.RoleAssistant, fragment)}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if m.FailAfter != nil {
		return m.FailAfter
	}

	select {
	case chunks <- llm.StreamChunk{Model: req.Model, Done: true, StopReason: "stop"}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Requests returns a copy of every request the provider has received.
func (m *MockProvider) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*llm.ChatRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *MockProvider) record(req *llm.ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}
