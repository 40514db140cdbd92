// Package provider defines the model engine the chat client delegates to.
package provider

import (
	"context"

	"github.com/papercomputeco/recall/pkg/llm"
)

// Provider defines the interface for an LLM chat backend.
// Each provider implementation knows how to translate the internal request
// into its specific API format and back.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai", "ollama")
	Name() string

	// Chat performs a single, non-streaming completion.
	Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// ChatStream performs a streaming completion, sending each chunk on chunks
	// as it arrives. Sends block until the receiver is ready or ctx is done.
	// ChatStream does not close chunks; the caller owns the channel.
	ChatStream(ctx context.Context, req *llm.ChatRequest, chunks chan<- llm.StreamChunk) error
}
