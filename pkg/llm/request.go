package llm

// ChatRequest represents a provider-agnostic chat completion request.
// The chat client builds one per call and advisors may rewrite its Messages
// before it is handed to a provider.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.2")
	Model string `json:"model"`

	// Conversation messages, oldest first
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream bool `json:"stream,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
