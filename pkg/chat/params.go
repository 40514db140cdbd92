package chat

// DefaultRetrieveSize is the number of prior turns a memory advisor fetches
// when no explicit size is given.
const DefaultRetrieveSize = 100

// MemoryParams are the per-request parameters handed to advisors.
type MemoryParams struct {
	// ConversationID partitions memory between independent conversations.
	ConversationID string

	// RetrieveSize is the maximum number of prior turns to prepend.
	RetrieveSize int
}

// NewMemoryParams returns params for conversationID with DefaultRetrieveSize.
func NewMemoryParams(conversationID string) MemoryParams {
	return MemoryParams{
		ConversationID: conversationID,
		RetrieveSize:   DefaultRetrieveSize,
	}
}
