// Package entdriver implements memory.Store on top of ent's SQL dialect
// driver. It is database-agnostic and is embedded by the sqlite and postgres
// stores, which only differ in how they open the connection and in their DDL.
package entdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/recall/pkg/llm"
)

// Table is the name of the table holding conversation turns.
const Table = "chat_memory"

// Column names of Table. seq is an auto-incrementing primary key that fixes
// insertion order.
const (
	ColumnSeq            = "seq"
	ColumnConversationID = "conversation_id"
	ColumnRole           = "role"
	ColumnContent        = "content"
	ColumnCreatedAt      = "created_at"
)

// EntDriver provides memory operations over an ent SQL driver.
type EntDriver struct {
	Driver *entsql.Driver
}

// Migrate runs the given DDL statements in order.
func (ed *EntDriver) Migrate(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if err := ed.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// Retrieve returns at most lastN of the newest turns, oldest first.
func (ed *EntDriver) Retrieve(ctx context.Context, conversationID string, lastN int) ([]llm.Message, error) {
	selector := entsql.Dialect(ed.Driver.Dialect()).
		Select(ColumnRole, ColumnContent).
		From(entsql.Table(Table)).
		Where(entsql.EQ(ColumnConversationID, conversationID))

	// Newest first so LIMIT keeps the tail, then flip back to chronological order.
	if lastN > 0 {
		selector = selector.OrderBy(entsql.Desc(ColumnSeq)).Limit(lastN)
	} else {
		selector = selector.OrderBy(entsql.Asc(ColumnSeq))
	}

	query, args := selector.Query()
	rows := &entsql.Rows{}
	if err := ed.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]llm.Message, 0)
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		msg := llm.Message{Role: role}
		if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn content: %w", err)
		}
		turns = append(turns, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	if lastN > 0 {
		slices.Reverse(turns)
	}
	return turns, nil
}

// Append inserts turns with a single multi-row INSERT.
func (ed *EntDriver) Append(ctx context.Context, conversationID string, turns ...llm.Message) error {
	if len(turns) == 0 {
		return nil
	}

	now := time.Now().UTC()
	insert := entsql.Dialect(ed.Driver.Dialect()).
		Insert(Table).
		Columns(ColumnConversationID, ColumnRole, ColumnContent, ColumnCreatedAt)

	for _, turn := range turns {
		content, err := json.Marshal(turn.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal turn content: %w", err)
		}
		insert = insert.Values(conversationID, turn.Role, string(content), now)
	}

	query, args := insert.Query()
	if err := ed.Driver.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to insert turns: %w", err)
	}
	return nil
}

// Clear deletes every turn of a conversation.
func (ed *EntDriver) Clear(ctx context.Context, conversationID string) error {
	query, args := entsql.Dialect(ed.Driver.Dialect()).
		Delete(Table).
		Where(entsql.EQ(ColumnConversationID, conversationID)).
		Query()

	if err := ed.Driver.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (ed *EntDriver) Close() error {
	return ed.Driver.Close()
}
