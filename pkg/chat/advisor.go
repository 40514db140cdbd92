package chat

import (
	"context"

	"github.com/papercomputeco/recall/pkg/llm"
)

// AdvisedRequest is the state an Advisor sees and may modify.
type AdvisedRequest struct {
	// Request is sent to the provider once every advisor has run Before.
	Request *llm.ChatRequest

	// Prompt is the user message this request was built from.
	Prompt llm.Message

	// Params are the caller supplied memory parameters.
	Params MemoryParams
}

// Advisor wraps a chat call. Before runs in registration order ahead of the
// provider call; After runs in reverse order once a completion has finished
// without error.
type Advisor interface {
	Name() string
	Before(ctx context.Context, req *AdvisedRequest) error
	After(ctx context.Context, req *AdvisedRequest, resp *llm.ChatResponse) error
}
