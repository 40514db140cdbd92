// Package memory provides pluggable conversation memory for the chat client.
//
// A [Store] keeps the ordered turns of each conversation, partitioned by a
// caller supplied conversation ID. The memory advisor retrieves the most recent
// turns before a completion and appends the new user and assistant turns after
// it. Backends are selected at configuration time:
//
//	[memory]
//	sqlite_path = "recall.db"
//	redis_addr = "localhost:6379"
//	postgres_dsn = ""
package memory

import (
	"context"

	"github.com/papercomputeco/recall/pkg/llm"
)

// Store holds conversation turns in insertion order.
type Store interface {
	// Retrieve returns at most lastN of the most recent turns for
	// conversationID, oldest first. An unknown conversation yields an empty
	// slice. lastN <= 0 returns every turn.
	Retrieve(ctx context.Context, conversationID string, lastN int) ([]llm.Message, error)

	// Append adds turns to the end of conversationID's history.
	Append(ctx context.Context, conversationID string, turns ...llm.Message) error

	// Clear removes every turn for conversationID.
	Clear(ctx context.Context, conversationID string) error

	// Close releases store resources.
	Close() error
}

// Factory hands out the Store used by a single request.
type Factory func() Store

// Shared returns a Factory that always hands out s.
func Shared(s Store) Factory {
	return func() Store { return s }
}

// Tail returns the last n elements of turns, or all of them when n <= 0.
func Tail(turns []llm.Message, n int) []llm.Message {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
