// Package eventstream publishes conversation turn events to an external
// stream once the memory advisor has recorded them.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnRecorded is emitted after a conversation turn is recorded in memory.
	EventTypeTurnRecorded = "recall.turn.recorded"
)

// TurnRecordedEvent is a transport-neutral event payload for a recorded turn.
type TurnRecordedEvent struct {
	SchemaVersion  int           `json:"schema_version"`
	EventType      string        `json:"event_type"`
	EventID        string        `json:"event_id"`
	EmittedAt      time.Time     `json:"emitted_at"`
	Source         EventSource   `json:"source"`
	ConversationID string        `json:"conversation_id"`
	Turns          []llm.Message `json:"turns"`
	StopReason     string        `json:"stop_reason,omitempty"`
	Usage          *llm.Usage    `json:"usage,omitempty"`
}

// EventSource identifies where the turn was recorded.
type EventSource struct {
	Backend string `json:"backend"`
	Model   string `json:"model,omitempty"`
}

// NewTurnRecordedEvent stamps a new event with a fresh ID and the current time.
func NewTurnRecordedEvent(source EventSource, conversationID string, resp *llm.ChatResponse, turns ...llm.Message) *TurnRecordedEvent {
	event := &TurnRecordedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeTurnRecorded,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		Source:         source,
		ConversationID: conversationID,
		Turns:          turns,
	}
	if resp != nil {
		event.StopReason = resp.StopReason
		event.Usage = resp.Usage
	}
	return event
}
